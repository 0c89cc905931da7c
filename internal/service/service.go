// Package service runs item operations end to end: it plans moderation
// actions, persists them with a version check, keeps the cache coherent and
// announces changes on the event feed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/manujcode/lose-and-found/internal/blob"
	"github.com/manujcode/lose-and-found/internal/cache"
	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/events"
	"github.com/manujcode/lose-and-found/internal/imaging"
	"github.com/manujcode/lose-and-found/internal/lifecycle"
	"github.com/manujcode/lose-and-found/internal/metrics"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/store"
)

// ErrInvalid marks input that fails validation. The wrapped message is safe
// to show to users.
var ErrInvalid = errors.New("invalid input")

// Publisher receives change notifications.
type Publisher interface {
	Publish(events.Event)
}

// Service holds the collaborators shared by all item operations.
type Service struct {
	DB      *db.DB
	Blobs   blob.Store
	Cache   *cache.Items
	Events  Publisher
	Metrics *metrics.Metrics
	Imaging imaging.Options
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func (s *Service) publish(typ string, kind model.ItemKind, id string, version int64) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(events.Event{Type: typ, Kind: kind, ID: id, Version: version})
}

func (s *Service) observeAction(kind model.ItemKind, action, outcome string) {
	if s.Metrics != nil {
		s.Metrics.ObserveAction(string(kind), action, outcome)
	}
}

func (s *Service) observeUpload(outcome string) {
	if s.Metrics != nil {
		s.Metrics.ObserveUpload(outcome)
	}
}

// actionOutcome classifies an action error for metrics.
func actionOutcome(err error) string {
	var rej *lifecycle.Rejection
	switch {
	case err == nil:
		return metrics.OutcomeApplied
	case errors.As(err, &rej), errors.Is(err, store.ErrNotFound):
		return metrics.OutcomeRejected
	case errors.Is(err, store.ErrConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

// removeImage deletes a stored image, logging failures. The record is
// already gone, so a leftover object is not an error for the caller.
func (s *Service) removeImage(ctx context.Context, key *string) {
	if key == nil || *key == "" || s.Blobs == nil {
		return
	}
	if _, err := s.Blobs.Delete(ctx, *key); err != nil {
		slog.Error("failed to delete item image", "key", *key, "error", err)
	}
}
