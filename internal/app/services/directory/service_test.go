package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/internal/app/storage/memory"
)

func TestResolveByEmailIsIdempotent(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	first, err := svc.ResolveByEmail(ctx, "Alice@Example.com", "Alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", first.Email)
	}

	second, err := svc.ResolveByEmail(ctx, "alice@example.com", "")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user, got %s and %s", first.ID, second.ID)
	}

	if _, err := svc.ResolveByEmail(ctx, "not-an-email", ""); err == nil {
		t.Fatalf("expected invalid email to be rejected")
	}
}

func TestResolveDefaultsNameFromEmail(t *testing.T) {
	svc := New(memory.New(), nil)

	u, err := svc.ResolveByEmail(context.Background(), "bob@example.com", "  ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if u.Name != "bob" {
		t.Fatalf("expected name bob, got %q", u.Name)
	}
}

func TestUpdateSkills(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	u, err := svc.ResolveByEmail(ctx, "carol@example.com", "Carol")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	updated, err := svc.UpdateSkills(ctx, u.ID, []string{" plumbing ", "Plumbing", "", "wiring"})
	if err != nil {
		t.Fatalf("update skills: %v", err)
	}
	if len(updated.Skills) != 2 || updated.Skills[0] != "plumbing" || updated.Skills[1] != "wiring" {
		t.Fatalf("unexpected skills %v", updated.Skills)
	}

	if _, err := svc.UpdateSkills(ctx, "missing", []string{"x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
