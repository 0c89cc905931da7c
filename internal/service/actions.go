package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/manujcode/lose-and-found/internal/events"
	"github.com/manujcode/lose-and-found/internal/lifecycle"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/store"
)

// ActionRequest asks for one moderation action. A non-zero Version must
// match the stored version or the request fails with store.ErrConflict.
type ActionRequest struct {
	ID      string
	Action  lifecycle.Action
	Reason  string
	Version int64
}

// ApplyLost plans and persists a lost item action. Rejected plans never
// reach the store.
func (s *Service) ApplyLost(ctx context.Context, actor model.Actor, req ActionRequest) (it *model.LostItem, plan *lifecycle.Plan, err error) {
	defer func() { s.observeAction(model.KindLost, string(req.Action), actionOutcome(err)) }()

	// Writes plan against the stored row, not a cached copy.
	it, err = store.GetLostItem(ctx, s.DB, req.ID)
	if err != nil {
		return nil, nil, err
	}
	if it == nil {
		return nil, nil, store.ErrNotFound
	}
	if req.Version != 0 && req.Version != it.Version {
		return nil, nil, store.ErrConflict
	}

	plan, err = lifecycle.PlanLost(it, actor, req.Action, req.Reason)
	if err != nil {
		return nil, nil, err
	}

	version := it.Version
	plan.Patch.ApplyLost(it)
	updated, err := store.UpdateLostItem(ctx, s.DB, it, version)
	s.Cache.Invalidate(model.KindLost, req.ID)
	if err != nil {
		return nil, nil, err
	}
	s.publish(events.ItemUpdated, model.KindLost, updated.ID, updated.Version)
	slog.Info("lost item action applied", "item", updated.ID, "action", req.Action, "user", actor.Email)
	return updated, plan, nil
}

// ApplyFound plans and persists a found item action.
func (s *Service) ApplyFound(ctx context.Context, actor model.Actor, req ActionRequest) (it *model.FoundItem, plan *lifecycle.Plan, err error) {
	defer func() { s.observeAction(model.KindFound, string(req.Action), actionOutcome(err)) }()

	it, err = store.GetFoundItem(ctx, s.DB, req.ID)
	if err != nil {
		return nil, nil, err
	}
	if it == nil {
		return nil, nil, store.ErrNotFound
	}
	if req.Version != 0 && req.Version != it.Version {
		return nil, nil, store.ErrConflict
	}

	plan, err = lifecycle.PlanFound(it, actor, req.Action, req.Reason)
	if err != nil {
		return nil, nil, err
	}

	version := it.Version
	plan.Patch.ApplyFound(it)
	updated, err := store.UpdateFoundItem(ctx, s.DB, it, version)
	s.Cache.Invalidate(model.KindFound, req.ID)
	if err != nil {
		return nil, nil, err
	}
	s.publish(events.ItemUpdated, model.KindFound, updated.ID, updated.Version)
	slog.Info("found item action applied", "item", updated.ID, "action", req.Action, "user", actor.Email)
	return updated, plan, nil
}

// AddComment appends a comment to a lost item on behalf of actor.
func (s *Service) AddComment(ctx context.Context, actor model.Actor, itemID, text string) (*model.Comment, error) {
	if actor.Email == "" {
		return nil, invalid("a signed-in user is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalid("comment text is required")
	}
	c, err := store.AddComment(ctx, s.DB, itemID, actor.Name, actor.Email, text)
	if err != nil {
		return nil, err
	}
	s.publish(events.CommentCreated, model.KindLost, itemID, 0)
	return c, nil
}

// Comments lists the comments of a lost item, newest first.
func (s *Service) Comments(ctx context.Context, itemID string) ([]model.Comment, error) {
	if _, err := s.GetLost(ctx, itemID); err != nil {
		return nil, err
	}
	return store.ListComments(ctx, s.DB, itemID)
}
