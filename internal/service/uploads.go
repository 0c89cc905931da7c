package service

import (
	"context"
	"sort"
	"time"

	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/store"
)

// Upload is one of a user's own listings.
type Upload struct {
	Kind  model.ItemKind   `json:"kind"`
	Lost  *model.LostItem  `json:"lost,omitempty"`
	Found *model.FoundItem `json:"found,omitempty"`
}

func (u Upload) createdAt() time.Time {
	if u.Lost != nil {
		return u.Lost.CreatedAt
	}
	return u.Found.CreatedAt
}

// UploadPage is one page of a user's merged listings.
type UploadPage struct {
	Items   []Upload
	Total   int
	Page    int
	PerPage int
}

// MyUploads returns one page of the listings of both kinds reported by
// email, merged newest first. Total counts both kinds.
func (s *Service) MyUploads(ctx context.Context, email string, page, perPage int) (*UploadPage, error) {
	f := model.ItemFilter{Email: model.NormalizeEmail(email), Page: page, PerPage: perPage}
	f.Normalize()
	out := &UploadPage{Items: []Upload{}, Page: f.Page, PerPage: f.PerPage}
	if f.Email == "" {
		return out, nil
	}

	// The merged page can draw every item from either kind, so each side
	// needs its newest page*perPage listings.
	need := f.Page * f.PerPage
	lost, lostTotal, err := collect(need, func(n int) ([]model.LostItem, int, error) {
		return store.ListLostItems(ctx, s.DB, model.ItemFilter{Email: f.Email, Page: n, PerPage: model.MaxPerPage})
	})
	if err != nil {
		return nil, err
	}
	found, foundTotal, err := collect(need, func(n int) ([]model.FoundItem, int, error) {
		return store.ListFoundItems(ctx, s.DB, model.ItemFilter{Email: f.Email, Page: n, PerPage: model.MaxPerPage})
	})
	if err != nil {
		return nil, err
	}
	out.Total = lostTotal + foundTotal

	merged := make([]Upload, 0, len(lost)+len(found))
	for i := range lost {
		merged = append(merged, Upload{Kind: model.KindLost, Lost: &lost[i]})
	}
	for i := range found {
		merged = append(merged, Upload{Kind: model.KindFound, Found: &found[i]})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].createdAt().After(merged[j].createdAt())
	})

	if start := (f.Page - 1) * f.PerPage; start < len(merged) {
		out.Items = merged[start:min(start+f.PerPage, len(merged))]
	}
	return out, nil
}

// collect pages through list until it holds need items or the rows run out.
func collect[T any](need int, list func(page int) ([]T, int, error)) ([]T, int, error) {
	var (
		all   []T
		total int
	)
	for page := 1; len(all) < need; page++ {
		items, n, err := list(page)
		if err != nil {
			return nil, 0, err
		}
		total = n
		all = append(all, items...)
		if len(items) < model.MaxPerPage {
			break
		}
	}
	if len(all) > need {
		all = all[:need]
	}
	return all, total, nil
}
