package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/domain/user"
	"github.com/taskhub-io/taskhub/internal/app/storage"
)

func TestUserEmailUniqueness(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateUser(ctx, user.User{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected id to be generated")
	}

	if _, err := store.CreateUser(ctx, user.User{Name: "Imposter", Email: "ALICE@example.com "}); err == nil {
		t.Fatalf("expected duplicate email to be rejected")
	}

	byEmail, err := store.GetUserByEmail(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("expected lookup to resolve %s, got %s", created.ID, byEmail.ID)
	}

	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostVersionCheck(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreatePost(ctx, post.Post{Title: "fix sink", OwnerID: "u1", Status: post.StatusOpen})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1 on create, got %d", created.Version)
	}

	first := created
	first.AppliedUserIDs = []string{"u2"}
	updated, err := store.UpdatePost(ctx, first)
	if err != nil {
		t.Fatalf("update post: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2 after update, got %d", updated.Version)
	}

	// Second writer still holds the version-1 snapshot and must lose.
	stale := created
	stale.AppliedUserIDs = []string{"u3"}
	if _, err := store.UpdatePost(ctx, stale); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict for stale snapshot, got %v", err)
	}

	fresh, err := store.GetPost(ctx, created.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if len(fresh.AppliedUserIDs) != 1 || fresh.AppliedUserIDs[0] != "u2" {
		t.Fatalf("expected winner's applicants to survive, got %v", fresh.AppliedUserIDs)
	}
}

func TestClonesDoNotAlias(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreatePost(ctx, post.Post{Title: "paint fence", OwnerID: "u1", Status: post.StatusOpen, AppliedUserIDs: []string{"u2"}})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	created.AppliedUserIDs[0] = "mutated"
	stored, err := store.GetPost(ctx, created.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if stored.AppliedUserIDs[0] != "u2" {
		t.Fatalf("stored snapshot aliased caller slice: %v", stored.AppliedUserIDs)
	}
}
