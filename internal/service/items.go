package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/manujcode/lose-and-found/internal/blob"
	"github.com/manujcode/lose-and-found/internal/events"
	"github.com/manujcode/lose-and-found/internal/imaging"
	"github.com/manujcode/lose-and-found/internal/lifecycle"
	"github.com/manujcode/lose-and-found/internal/metrics"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/store"
)

// NewItem is the user-supplied part of a new listing. The reporter's name
// and email come from the session.
type NewItem struct {
	Title        string
	Description  string
	Location     string
	Color        string
	Tags         string
	Course       string
	Phone        string
	PhonePrivate bool
}

func (in *NewItem) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.Color = strings.TrimSpace(in.Color)
	in.Tags = strings.TrimSpace(in.Tags)
	in.Course = strings.TrimSpace(in.Course)
	in.Phone = strings.TrimSpace(in.Phone)
}

// validate checks required fields. Phone numbers are exactly ten digits.
func (in *NewItem) validate() error {
	switch {
	case in.Title == "":
		return invalid("title is required")
	case in.Description == "":
		return invalid("description is required")
	case in.Location == "":
		return invalid("location is required")
	case in.Phone == "":
		return invalid("phone is required")
	}
	if len(in.Phone) != 10 {
		return invalid("phone must be 10 digits")
	}
	for _, c := range in.Phone {
		if c < '0' || c > '9' {
			return invalid("phone must be 10 digits")
		}
	}
	return nil
}

func (in *NewItem) listing(actor model.Actor) model.Listing {
	return model.Listing{
		Title:        in.Title,
		Description:  in.Description,
		Location:     in.Location,
		Color:        in.Color,
		Tags:         in.Tags,
		Course:       in.Course,
		Name:         actor.Name,
		Email:        actor.Email,
		Phone:        in.Phone,
		PhonePrivate: in.PhonePrivate,
	}
}

// storeImage processes and stores an upload. The returned cleanup deletes the
// object again and must be called if the record cannot be written.
func (s *Service) storeImage(ctx context.Context, kind model.ItemKind, img io.Reader) (*string, func(), error) {
	if img == nil {
		return nil, func() {}, nil
	}
	res, err := imaging.Process(img, s.Imaging)
	if err != nil {
		s.observeUpload(metrics.OutcomeRejected)
		if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrTooLarge) {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return nil, nil, err
	}

	key := fmt.Sprintf("%s/%s.jpg", kind, uuid.NewString())
	if _, err := s.Blobs.Put(ctx, key, bytes.NewReader(res.Data), blob.PutOptions{ContentType: res.MIME}); err != nil {
		s.observeUpload(metrics.OutcomeError)
		return nil, nil, fmt.Errorf("storing image: %w", err)
	}
	s.observeUpload(metrics.OutcomeApplied)

	cleanup := func() {
		// The request may already be cancelled.
		if _, err := s.Blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
			slog.Error("failed to remove orphaned image", "key", key, "error", err)
		}
	}
	return &key, cleanup, nil
}

// CreateLost stores an optional image and then the lost item. If the record
// cannot be written the image is removed again.
func (s *Service) CreateLost(ctx context.Context, actor model.Actor, in NewItem, img io.Reader) (*model.LostItem, error) {
	if actor.Email == "" {
		return nil, invalid("a signed-in user is required")
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	key, cleanup, err := s.storeImage(ctx, model.KindLost, img)
	if err != nil {
		return nil, err
	}

	it := &model.LostItem{Listing: in.listing(actor)}
	it.ImageKey = key
	created, err := store.CreateLostItem(ctx, s.DB, it)
	if err != nil {
		cleanup()
		return nil, err
	}

	s.Cache.PutLost(created)
	s.publish(events.ItemCreated, model.KindLost, created.ID, created.Version)
	slog.Info("lost item created", "item", created.ID, "user", actor.Email)
	return created, nil
}

// CreateFound stores an optional image and then the found item.
func (s *Service) CreateFound(ctx context.Context, actor model.Actor, in NewItem, img io.Reader) (*model.FoundItem, error) {
	if actor.Email == "" {
		return nil, invalid("a signed-in user is required")
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	key, cleanup, err := s.storeImage(ctx, model.KindFound, img)
	if err != nil {
		return nil, err
	}

	it := &model.FoundItem{Listing: in.listing(actor)}
	it.ImageKey = key
	created, err := store.CreateFoundItem(ctx, s.DB, it)
	if err != nil {
		cleanup()
		return nil, err
	}

	s.Cache.PutFound(created)
	s.publish(events.ItemCreated, model.KindFound, created.ID, created.Version)
	slog.Info("found item created", "item", created.ID, "user", actor.Email)
	return created, nil
}

// GetLost returns a lost item, served from the cache when possible. Missing
// items yield store.ErrNotFound.
func (s *Service) GetLost(ctx context.Context, id string) (*model.LostItem, error) {
	if it, ok := s.Cache.Lost(id); ok {
		return it, nil
	}
	it, err := store.GetLostItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, store.ErrNotFound
	}
	s.Cache.PutLost(it)
	return it, nil
}

// GetFound returns a found item, served from the cache when possible.
func (s *Service) GetFound(ctx context.Context, id string) (*model.FoundItem, error) {
	if it, ok := s.Cache.Found(id); ok {
		return it, nil
	}
	it, err := store.GetFoundItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, store.ErrNotFound
	}
	s.Cache.PutFound(it)
	return it, nil
}

// canDelete allows reporters to delete their own items and admins any item.
func canDelete(actor model.Actor, l *model.Listing) error {
	if actor.Roles.Admin || actor.Owns(l) {
		return nil
	}
	return &lifecycle.Rejection{Code: lifecycle.CodeForbidden, Action: "delete", Message: "only the reporter or an admin can delete this item"}
}

// DeleteLost removes a lost item with its comments and image.
func (s *Service) DeleteLost(ctx context.Context, actor model.Actor, id string) error {
	it, err := s.GetLost(ctx, id)
	if err != nil {
		return err
	}
	if err := canDelete(actor, &it.Listing); err != nil {
		return err
	}
	deleted, err := store.DeleteLostItem(ctx, s.DB, id)
	if err != nil {
		return err
	}
	s.Cache.Invalidate(model.KindLost, id)
	s.removeImage(ctx, deleted.ImageKey)
	s.publish(events.ItemDeleted, model.KindLost, id, 0)
	slog.Info("lost item deleted", "item", id, "user", actor.Email)
	return nil
}

// DeleteFound removes a found item and its image.
func (s *Service) DeleteFound(ctx context.Context, actor model.Actor, id string) error {
	it, err := s.GetFound(ctx, id)
	if err != nil {
		return err
	}
	if err := canDelete(actor, &it.Listing); err != nil {
		return err
	}
	deleted, err := store.DeleteFoundItem(ctx, s.DB, id)
	if err != nil {
		return err
	}
	s.Cache.Invalidate(model.KindFound, id)
	s.removeImage(ctx, deleted.ImageKey)
	s.publish(events.ItemDeleted, model.KindFound, id, 0)
	slog.Info("found item deleted", "item", id, "user", actor.Email)
	return nil
}

// Delete removes an item of either kind.
func (s *Service) Delete(ctx context.Context, actor model.Actor, kind model.ItemKind, id string) error {
	if kind == model.KindLost {
		return s.DeleteLost(ctx, actor, id)
	}
	return s.DeleteFound(ctx, actor, id)
}

// Image opens the stored image of an item.
func (s *Service) Image(ctx context.Context, kind model.ItemKind, id string) (blob.Info, io.ReadCloser, error) {
	var l *model.Listing
	if kind == model.KindLost {
		it, err := s.GetLost(ctx, id)
		if err != nil {
			return blob.Info{}, nil, err
		}
		l = &it.Listing
	} else {
		it, err := s.GetFound(ctx, id)
		if err != nil {
			return blob.Info{}, nil, err
		}
		l = &it.Listing
	}
	if !l.HasImage() {
		return blob.Info{}, nil, store.ErrNotFound
	}
	info, rc, err := s.Blobs.Get(ctx, *l.ImageKey)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, store.ErrNotFound
	}
	return info, rc, err
}
