package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
)

// AnalyticsMonths is the number of calendar months in the monthly breakdown.
const AnalyticsMonths = 6

// itemFact is the slice of an item that analytics needs.
type itemFact struct {
	Kind      model.ItemKind
	Tags      string
	Disabled  bool
	Recovered bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func loadFacts(ctx context.Context, db *db.DB) ([]itemFact, error) {
	var facts []itemFact

	rows, err := db.QueryContext(ctx,
		`SELECT tags, disabled, requested, created_at, updated_at FROM lost_items`)
	if err != nil {
		return nil, fmt.Errorf("loading lost item facts: %w", err)
	}
	for rows.Next() {
		f := itemFact{Kind: model.KindLost}
		if err := rows.Scan(&f.Tags, &f.Disabled, &f.Recovered, &f.CreatedAt, &f.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning lost item fact: %w", err)
		}
		facts = append(facts, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT tags, disabled, is_active, owner_received, created_at, updated_at FROM found_items`)
	if err != nil {
		return nil, fmt.Errorf("loading found item facts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var active *bool
		f := itemFact{Kind: model.KindFound}
		if err := rows.Scan(&f.Tags, &f.Disabled, &active, &f.Recovered, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning found item fact: %w", err)
		}
		if active != nil && !*active {
			f.Disabled = true
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// GetAnalytics computes the admin dashboard as of at.
func GetAnalytics(ctx context.Context, db *db.DB, at time.Time) (*model.Analytics, error) {
	facts, err := loadFacts(ctx, db)
	if err != nil {
		return nil, err
	}
	return summarize(facts, at), nil
}

// GetPublicStats computes the visitor summary: active counts per kind and
// items returned through the platform.
func GetPublicStats(ctx context.Context, db *db.DB) (*model.PublicStats, error) {
	facts, err := loadFacts(ctx, db)
	if err != nil {
		return nil, err
	}
	s := &model.PublicStats{}
	for _, f := range facts {
		if f.Recovered {
			s.RecoveredItems++
		}
		if f.Disabled {
			continue
		}
		if f.Kind == model.KindLost {
			s.LostItems++
		} else {
			s.FoundItems++
		}
	}
	s.TotalItems = len(facts)
	s.SuccessRate = successRate(s.RecoveredItems, s.TotalItems)
	return s, nil
}

func summarize(facts []itemFact, at time.Time) *model.Analytics {
	a := &model.Analytics{TotalItems: len(facts)}

	// Oldest month first.
	first := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, at.Location()).AddDate(0, -(AnalyticsMonths - 1), 0)
	months := make([]model.MonthStats, AnalyticsMonths)
	for i := range months {
		months[i].Month = first.AddDate(0, i, 0).Format("Jan 2006")
	}
	monthIndex := func(t time.Time) int {
		t = t.In(at.Location())
		i := (t.Year()-first.Year())*12 + int(t.Month()) - int(first.Month())
		if i < 0 || i >= AnalyticsMonths {
			return -1
		}
		return i
	}

	categories := map[string]*model.CategoryStats{}
	for _, f := range facts {
		if f.Kind == model.KindLost {
			a.LostItems++
		} else {
			a.FoundItems++
		}
		if f.Disabled {
			a.DisabledItems++
		} else {
			a.ActiveItems++
		}
		if f.Recovered {
			a.RecoveredItems++
			if i := monthIndex(f.UpdatedAt); i >= 0 {
				months[i].Recovered++
			}
		}
		if i := monthIndex(f.CreatedAt); i >= 0 {
			if f.Kind == model.KindLost {
				months[i].Lost++
			} else {
				months[i].Found++
			}
			months[i].Total++
		}

		name := f.Tags
		if name == "" {
			name = "Uncategorized"
		}
		c, ok := categories[name]
		if !ok {
			c = &model.CategoryStats{Name: name}
			categories[name] = c
		}
		if f.Kind == model.KindLost {
			c.Lost++
		} else {
			c.Found++
		}
		c.Total++
	}

	a.SuccessRate = successRate(a.RecoveredItems, a.TotalItems)
	a.Monthly = months
	a.Categories = make([]model.CategoryStats, 0, len(categories))
	for _, c := range categories {
		a.Categories = append(a.Categories, *c)
	}
	sort.Slice(a.Categories, func(i, j int) bool {
		if a.Categories[i].Total != a.Categories[j].Total {
			return a.Categories[i].Total > a.Categories[j].Total
		}
		return a.Categories[i].Name < a.Categories[j].Name
	})
	return a
}

func successRate(recovered, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(float64(recovered)/float64(total)*100)))
}
