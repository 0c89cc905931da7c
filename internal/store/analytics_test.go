package store

import (
	"context"
	"testing"
	"time"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
)

func TestSummarize(t *testing.T) {
	at := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	june := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	old := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	facts := []itemFact{
		{Kind: model.KindLost, Tags: "Electronics", CreatedAt: june, UpdatedAt: june},
		{Kind: model.KindLost, Tags: "Bottles", Recovered: true, Disabled: true, CreatedAt: jan, UpdatedAt: june},
		{Kind: model.KindFound, Tags: "Electronics", Recovered: true, CreatedAt: jan, UpdatedAt: jan},
		{Kind: model.KindFound, CreatedAt: old, UpdatedAt: old},
	}

	a := summarize(facts, at)
	if a.TotalItems != 4 || a.LostItems != 2 || a.FoundItems != 2 {
		t.Errorf("unexpected totals %+v", a)
	}
	if a.ActiveItems != 3 || a.DisabledItems != 1 {
		t.Errorf("expected 3 active 1 disabled, got %d/%d", a.ActiveItems, a.DisabledItems)
	}
	if a.RecoveredItems != 2 || a.SuccessRate != "50%" {
		t.Errorf("expected 2 recovered at 50%%, got %d %s", a.RecoveredItems, a.SuccessRate)
	}

	if len(a.Monthly) != AnalyticsMonths {
		t.Fatalf("expected %d months, got %d", AnalyticsMonths, len(a.Monthly))
	}
	if a.Monthly[0].Month != "Jan 2026" || a.Monthly[5].Month != "Jun 2026" {
		t.Errorf("unexpected month range %q..%q", a.Monthly[0].Month, a.Monthly[5].Month)
	}
	if m := a.Monthly[0]; m.Lost != 1 || m.Found != 1 || m.Recovered != 1 || m.Total != 2 {
		t.Errorf("unexpected January %+v", m)
	}
	if m := a.Monthly[5]; m.Lost != 1 || m.Recovered != 1 || m.Total != 1 {
		t.Errorf("unexpected June %+v", m)
	}

	wantCats := []model.CategoryStats{
		{Name: "Electronics", Lost: 1, Found: 1, Total: 2},
		{Name: "Bottles", Lost: 1, Total: 1},
		{Name: "Uncategorized", Found: 1, Total: 1},
	}
	if len(a.Categories) != len(wantCats) {
		t.Fatalf("expected %d categories, got %+v", len(wantCats), a.Categories)
	}
	for i, want := range wantCats {
		if a.Categories[i] != want {
			t.Errorf("category %d: expected %+v, got %+v", i, want, a.Categories[i])
		}
	}
}

func TestSuccessRateEmpty(t *testing.T) {
	if got := successRate(0, 0); got != "0%" {
		t.Errorf("expected 0%%, got %q", got)
	}
	if got := successRate(1, 3); got != "33%" {
		t.Errorf("expected 33%%, got %q", got)
	}
}

func TestGetPublicStats(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateLostItem(ctx, database, newLost("A", "a@campus.edu"))
	recovered := newLost("B", "a@campus.edu")
	recovered.Requested = true
	recovered.Disabled = true
	CreateLostItem(ctx, database, recovered)
	CreateFoundItem(ctx, database, newFound("C", "c@campus.edu"))

	s, err := GetPublicStats(ctx, database)
	if err != nil {
		t.Fatalf("GetPublicStats: %v", err)
	}
	if s.LostItems != 1 || s.FoundItems != 1 || s.RecoveredItems != 1 || s.TotalItems != 3 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.SuccessRate != "33%" {
		t.Errorf("expected 33%%, got %q", s.SuccessRate)
	}

	a, err := GetAnalytics(ctx, database, time.Now())
	if err != nil {
		t.Fatalf("GetAnalytics: %v", err)
	}
	if a.TotalItems != 3 || a.DisabledItems != 1 {
		t.Errorf("unexpected analytics %+v", a)
	}
}
