package api

import (
	"github.com/manujcode/lose-and-found/internal/lifecycle"
	"github.com/manujcode/lose-and-found/internal/model"
)

// lostView is a lost item as shown to one viewer.
type lostView struct {
	model.LostItem
	Status         lifecycle.Status   `json:"status"`
	AllowedActions []lifecycle.Action `json:"allowed_actions"`
	HasImage       bool               `json:"has_image"`
}

type foundView struct {
	model.FoundItem
	Status         lifecycle.Status   `json:"status"`
	AllowedActions []lifecycle.Action `json:"allowed_actions"`
	HasImage       bool               `json:"has_image"`
}

type page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// canSeePhone reports whether the viewer may see a private phone number.
func canSeePhone(actor model.Actor, l *model.Listing) bool {
	return !l.PhonePrivate || actor.Owns(l) || actor.Roles.Guard || actor.Roles.Admin
}

// viewLost copies it so callers' values, including cached ones, stay intact.
func viewLost(it model.LostItem, actor model.Actor) lostView {
	if !canSeePhone(actor, &it.Listing) {
		it.Phone = ""
	}
	actions := []lifecycle.Action{}
	if actor.Email != "" {
		actions = append(actions, lifecycle.AllowedLost(&it, actor)...)
	}
	return lostView{
		LostItem:       it,
		Status:         lifecycle.DescribeLost(&it),
		AllowedActions: actions,
		HasImage:       it.HasImage(),
	}
}

func viewFound(it model.FoundItem, actor model.Actor) foundView {
	if !canSeePhone(actor, &it.Listing) {
		it.Phone = ""
	}
	actions := []lifecycle.Action{}
	if actor.Email != "" {
		actions = append(actions, lifecycle.AllowedFound(&it, actor)...)
	}
	return foundView{
		FoundItem:      it,
		Status:         lifecycle.DescribeFound(&it),
		AllowedActions: actions,
		HasImage:       it.HasImage(),
	}
}

func lostPage(items []model.LostItem, total int, f model.ItemFilter, actor model.Actor) page[lostView] {
	out := make([]lostView, 0, len(items))
	for _, it := range items {
		out = append(out, viewLost(it, actor))
	}
	return page[lostView]{Items: out, Total: total, Page: f.Page, PerPage: f.PerPage}
}

func foundPage(items []model.FoundItem, total int, f model.ItemFilter, actor model.Actor) page[foundView] {
	out := make([]foundView, 0, len(items))
	for _, it := range items {
		out = append(out, viewFound(it, actor))
	}
	return page[foundView]{Items: out, Total: total, Page: f.Page, PerPage: f.PerPage}
}
