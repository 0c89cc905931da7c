package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/manujcode/lose-and-found/internal/blob"
	"github.com/manujcode/lose-and-found/internal/cache"
	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/events"
	"github.com/manujcode/lose-and-found/internal/lifecycle"
	"github.com/manujcode/lose-and-found/internal/metrics"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return events.Event{}
	}
	return r.events[len(r.events)-1]
}

type fixture struct {
	svc    *Service
	db     *db.DB
	blobs  *blob.Memory
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:     db.NewTestDB(t),
		blobs:  blob.NewMemory(),
		events: &recorder{},
	}
	f.svc = &Service{
		DB:      f.db,
		Blobs:   f.blobs,
		Cache:   cache.New(16, time.Minute),
		Events:  f.events,
		Metrics: metrics.New(),
	}
	return f
}

var (
	priya = model.Actor{Email: "priya@campus.edu", Name: "Priya"}
	ravi  = model.Actor{Email: "ravi@campus.edu", Name: "Ravi"}
	guard = model.Actor{Email: "guard@campus.edu", Name: "Gate 1", Roles: model.Roles{Guard: true}}
	admin = model.Actor{Email: "admin@campus.edu", Name: "Admin", Roles: model.Roles{Admin: true}}
)

func newItem(title string) NewItem {
	return NewItem{
		Title:       title,
		Description: "black leather",
		Location:    "Main library",
		Phone:       "9876543210",
	}
}

func testPNG(t *testing.T) io.Reader {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*NewItem)
	}{
		{"missing title", func(in *NewItem) { in.Title = "  " }},
		{"missing description", func(in *NewItem) { in.Description = "" }},
		{"missing location", func(in *NewItem) { in.Location = "" }},
		{"missing phone", func(in *NewItem) { in.Phone = "" }},
		{"short phone", func(in *NewItem) { in.Phone = "12345" }},
		{"letters in phone", func(in *NewItem) { in.Phone = "98765abcde" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newItem("Wallet")
			tt.mutate(&in)
			if _, err := f.svc.CreateLost(ctx, priya, in, nil); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	if _, err := f.svc.CreateFound(ctx, model.Actor{}, newItem("Wallet"), nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected anonymous create to fail, got %v", err)
	}
}

func TestCreateLostWithImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, err := f.svc.CreateLost(ctx, priya, newItem("Wallet"), testPNG(t))
	if err != nil {
		t.Fatalf("CreateLost: %v", err)
	}
	if !it.HasImage() || f.blobs.Len() != 1 {
		t.Fatalf("expected stored image, key=%v objects=%d", it.ImageKey, f.blobs.Len())
	}
	if it.Email != "priya@campus.edu" || it.Name != "Priya" {
		t.Errorf("expected reporter from session, got %q %q", it.Name, it.Email)
	}
	if e := f.events.last(); e.Type != events.ItemCreated || e.Kind != model.KindLost || e.ID != it.ID {
		t.Errorf("unexpected event %+v", e)
	}

	info, rc, err := f.svc.Image(ctx, model.KindLost, it.ID)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	rc.Close()
	if info.ContentType != "image/jpeg" {
		t.Errorf("expected jpeg, got %q", info.ContentType)
	}
}

func TestCreateRejectsBadImage(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFound(context.Background(), priya, newItem("Umbrella"), bytes.NewReader([]byte("not an image")))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if f.blobs.Len() != 0 {
		t.Error("expected nothing stored")
	}
}

func TestCreateRemovesImageWhenRecordFails(t *testing.T) {
	f := newFixture(t)
	f.db.Close()

	if _, err := f.svc.CreateLost(context.Background(), priya, newItem("Wallet"), testPNG(t)); err == nil {
		t.Fatal("expected create to fail on a closed database")
	}
	if f.blobs.Len() != 0 {
		t.Errorf("expected orphaned image to be removed, %d objects left", f.blobs.Len())
	}
}

func TestMarkOwnerReceivedWithoutGuardLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, err := f.svc.CreateFound(ctx, ravi, newItem("Calculator"), nil)
	if err != nil {
		t.Fatalf("CreateFound: %v", err)
	}

	_, _, err = f.svc.ApplyFound(ctx, guard, ActionRequest{
		ID: it.ID, Action: lifecycle.ActionMarkOwnerReceived, Reason: "returned",
	})
	var rej *lifecycle.Rejection
	if !errors.As(err, &rej) || rej.Code != lifecycle.CodePreconditionFailed {
		t.Fatalf("expected precondition rejection, got %v", err)
	}

	stored, _ := store.GetFoundItem(ctx, f.db, it.ID)
	if stored.Version != it.Version || stored.OwnerReceived || stored.GuardRemarks != "" {
		t.Errorf("expected stored item unchanged, got %+v", stored)
	}
}

func TestFoundItemWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, err := f.svc.CreateFound(ctx, ravi, newItem("Wallet"), nil)
	if err != nil {
		t.Fatalf("CreateFound: %v", err)
	}
	if s := lifecycle.DescribeFound(it); s.Label != "Active" {
		t.Fatalf("expected Active, got %q", s.Label)
	}

	it, plan, err := f.svc.ApplyFound(ctx, guard, ActionRequest{ID: it.ID, Action: lifecycle.ActionToggleGuardReceived})
	if err != nil {
		t.Fatalf("toggle guard received: %v", err)
	}
	if s := lifecycle.DescribeFound(it); s.Label != "Guard Received" {
		t.Fatalf("expected Guard Received, got %q (%s)", s.Label, plan.Message)
	}

	it, plan, err = f.svc.ApplyFound(ctx, guard, ActionRequest{
		ID: it.ID, Action: lifecycle.ActionMarkOwnerReceived, Reason: "returned to Priya", Version: it.Version,
	})
	if err != nil {
		t.Fatalf("mark owner received: %v", err)
	}
	s := lifecycle.DescribeFound(it)
	if s.Label != "Owner Received" || s.Reason != "returned to Priya" {
		t.Errorf("expected Owner Received with remarks, got %+v", s)
	}
	if plan.Message == "" {
		t.Error("expected a confirmation message")
	}
	if it.Version != 3 {
		t.Errorf("expected version 3, got %d", it.Version)
	}
	if e := f.events.last(); e.Type != events.ItemUpdated || e.Version != 3 {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestFoundActionsRequireGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, _ := f.svc.CreateFound(ctx, ravi, newItem("Keys"), nil)
	_, _, err := f.svc.ApplyFound(ctx, ravi, ActionRequest{ID: it.ID, Action: lifecycle.ActionToggleGuardReceived})
	var rej *lifecycle.Rejection
	if !errors.As(err, &rej) || rej.Code != lifecycle.CodeForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestApplyStaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, _ := f.svc.CreateLost(ctx, priya, newItem("Bottle"), nil)
	if _, _, err := f.svc.ApplyLost(ctx, priya, ActionRequest{
		ID: it.ID, Action: lifecycle.ActionDisable, Reason: "found it", Version: it.Version + 5,
	}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if _, _, err := f.svc.ApplyLost(ctx, priya, ActionRequest{ID: "missing", Action: lifecycle.ActionDisable, Reason: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyLostInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, _ := f.svc.CreateLost(ctx, priya, newItem("Bottle"), nil)
	if _, err := f.svc.GetLost(ctx, it.ID); err != nil {
		t.Fatalf("GetLost: %v", err)
	}

	if _, _, err := f.svc.ApplyLost(ctx, priya, ActionRequest{ID: it.ID, Action: lifecycle.ActionDisable, Reason: "found it"}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got, err := f.svc.GetLost(ctx, it.ID)
	if err != nil {
		t.Fatalf("GetLost: %v", err)
	}
	if !got.Disabled || got.Stage != model.StageDisabled || got.DisabledReason != "found it" {
		t.Errorf("expected fresh disabled item, got %+v", got)
	}
}

func TestDeleteLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, _ := f.svc.CreateLost(ctx, priya, newItem("Wallet"), testPNG(t))
	if _, err := f.svc.AddComment(ctx, ravi, it.ID, "saw it near the stairs"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	var rej *lifecycle.Rejection
	if err := f.svc.DeleteLost(ctx, ravi, it.ID); !errors.As(err, &rej) {
		t.Fatalf("expected non-owner delete to be rejected, got %v", err)
	}

	if err := f.svc.DeleteLost(ctx, priya, it.ID); err != nil {
		t.Fatalf("DeleteLost: %v", err)
	}
	if f.blobs.Len() != 0 {
		t.Error("expected image to be deleted")
	}
	if _, err := f.svc.GetLost(ctx, it.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if e := f.events.last(); e.Type != events.ItemDeleted {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestAdminDeletesAnyItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, _ := f.svc.CreateFound(ctx, ravi, newItem("Scarf"), nil)
	if err := f.svc.Delete(ctx, admin, model.KindFound, it.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.svc.Delete(ctx, admin, model.KindFound, it.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, _ := f.svc.CreateLost(ctx, priya, newItem("Notebook"), nil)
	if _, err := f.svc.AddComment(ctx, ravi, it.ID, "   "); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected blank comment to be rejected, got %v", err)
	}
	if _, err := f.svc.AddComment(ctx, ravi, "missing", "hello"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	f.svc.AddComment(ctx, ravi, it.ID, "first")
	f.svc.AddComment(ctx, priya, it.ID, "second")
	comments, err := f.svc.Comments(ctx, it.ID)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 2 || comments[0].Text != "second" {
		t.Errorf("expected newest first, got %+v", comments)
	}
	if e := f.events.last(); e.Type != events.CommentCreated || e.ID != it.ID {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestMyUploads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.CreateLost(ctx, priya, newItem("Wallet"), nil)
	time.Sleep(2 * time.Millisecond)
	f.svc.CreateFound(ctx, priya, newItem("Umbrella"), nil)
	f.svc.CreateFound(ctx, ravi, newItem("Keys"), nil)

	uploads, err := f.svc.MyUploads(ctx, "Priya@Campus.edu", 1, 0)
	if err != nil {
		t.Fatalf("MyUploads: %v", err)
	}
	if uploads.Total != 2 || len(uploads.Items) != 2 {
		t.Fatalf("expected 2 uploads, got %d of %d", len(uploads.Items), uploads.Total)
	}
	if uploads.Items[0].Kind != model.KindFound || uploads.Items[1].Kind != model.KindLost {
		t.Errorf("expected newest first, got %s then %s", uploads.Items[0].Kind, uploads.Items[1].Kind)
	}
}

func TestMyUploadsPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Alternate kinds so every page mixes both tables.
	const n = 2*model.MaxPerPage + 5
	var titles []string
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("Item %03d", i)
		titles = append(titles, title)
		var err error
		if i%2 == 0 {
			_, err = f.svc.CreateLost(ctx, priya, newItem(title), nil)
		} else {
			_, err = f.svc.CreateFound(ctx, priya, newItem(title), nil)
		}
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		time.Sleep(time.Millisecond)
	}

	var seen []string
	for page := 1; ; page++ {
		got, err := f.svc.MyUploads(ctx, priya.Email, page, 40)
		if err != nil {
			t.Fatalf("MyUploads page %d: %v", page, err)
		}
		if got.Total != n {
			t.Fatalf("page %d: total = %d, want %d", page, got.Total, n)
		}
		if len(got.Items) == 0 {
			break
		}
		for _, u := range got.Items {
			if u.Lost != nil {
				seen = append(seen, u.Lost.Title)
			} else {
				seen = append(seen, u.Found.Title)
			}
		}
	}

	if len(seen) != n {
		t.Fatalf("paged through %d uploads, want %d", len(seen), n)
	}
	for i, title := range seen {
		if want := titles[n-1-i]; title != want {
			t.Fatalf("position %d = %q, want %q", i, title, want)
		}
	}
}
