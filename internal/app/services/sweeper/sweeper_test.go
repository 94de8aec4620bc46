package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/storage/memory"
)

func TestScanCountsOnlyOverdueOpenPosts(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	seed := []post.Post{
		{Title: "overdue", OwnerID: "u1", Status: post.StatusOpen, DueDate: now.Add(-time.Hour)},
		{Title: "due later", OwnerID: "u1", Status: post.StatusOpen, DueDate: now.Add(time.Hour)},
		{Title: "no due date", OwnerID: "u1", Status: post.StatusOpen},
	}
	for _, p := range seed {
		if _, err := store.CreatePost(ctx, p); err != nil {
			t.Fatalf("seed %q: %v", p.Title, err)
		}
	}

	assigned, err := store.CreatePost(ctx, post.Post{Title: "assigned overdue", OwnerID: "u1", Status: post.StatusOpen, DueDate: now.Add(-time.Hour), AppliedUserIDs: []string{"w1"}})
	if err != nil {
		t.Fatalf("seed assigned: %v", err)
	}
	assigned.Status = post.StatusAssigned
	assigned.AssignedUserID = "w1"
	if _, err := store.UpdatePost(ctx, assigned); err != nil {
		t.Fatalf("assign: %v", err)
	}

	scanner, err := NewScanner(store, "@every 1m", nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	scanner.now = func() time.Time { return now }

	if got := scanner.scan(ctx); got != 1 {
		t.Fatalf("expected 1 overdue post, got %d", got)
	}
}

func TestNewScannerRejectsBadSchedule(t *testing.T) {
	if _, err := NewScanner(memory.New(), "every minute or so", nil); err == nil {
		t.Fatalf("expected schedule parse error")
	}
}

func TestScannerLifecycle(t *testing.T) {
	scanner, err := NewScanner(memory.New(), "@every 10ms", nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}

	ctx := context.Background()
	if err := scanner.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := scanner.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Stop is idempotent.
	if err := scanner.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
