package posts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/domain/user"
	"github.com/taskhub-io/taskhub/internal/app/storage/memory"
)

func newFixture(t *testing.T) (*Service, *memory.Store, user.User) {
	t.Helper()
	store := memory.New()
	owner, err := store.CreateUser(context.Background(), user.User{Name: "Owner", Email: "owner@example.com"})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	return New(store, store, nil), store, owner
}

func TestCreateValidation(t *testing.T) {
	svc, _, owner := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner.ID, "  Fix the sink  ", "leaky", []string{"Home", "home", " "}, time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Title != "Fix the sink" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
	if created.Status != post.StatusOpen {
		t.Fatalf("expected OPEN, got %s", created.Status)
	}
	if len(created.Tags) != 1 || created.Tags[0] != "home" {
		t.Fatalf("expected deduplicated tags, got %v", created.Tags)
	}

	if _, err := svc.Create(ctx, owner.ID, "   ", "", nil, time.Time{}); err == nil {
		t.Fatalf("expected empty title to be rejected")
	}
	if _, err := svc.Create(ctx, "ghost", "Title", "", nil, time.Time{}); err == nil {
		t.Fatalf("expected unknown owner to be rejected")
	}
}

func TestUpdateOwnerAndStatusGates(t *testing.T) {
	svc, store, owner := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner.ID, "Fix the sink", "", nil, time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newTitle := "Fix the kitchen sink"
	updated, err := svc.Update(ctx, created.ID, owner.ID, &newTitle, nil, nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != newTitle {
		t.Fatalf("expected title change, got %q", updated.Title)
	}

	if _, err := svc.Update(ctx, created.ID, "stranger", &newTitle, nil, nil, nil); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	assigned := updated
	assigned.Status = post.StatusAssigned
	assigned.AppliedUserIDs = []string{"w1"}
	assigned.AssignedUserID = "w1"
	if _, err := store.UpdatePost(ctx, assigned); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := svc.Update(ctx, created.ID, owner.ID, &newTitle, nil, nil, nil); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
}

func TestDeleteRequiresOwner(t *testing.T) {
	svc, _, owner := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner.ID, "Paint fence", "", nil, time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, created.ID, "stranger"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID, owner.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err == nil {
		t.Fatalf("expected post to be gone")
	}
}
