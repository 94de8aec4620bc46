package messages

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/taskhub-io/taskhub/internal/app/domain/user"
	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/internal/app/storage/memory"
)

func TestSendAndList(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	sender, err := store.CreateUser(ctx, user.User{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create sender: %v", err)
	}

	sent, err := svc.Send(ctx, "general", sender.ID, "  hello  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Text != "hello" {
		t.Fatalf("expected trimmed text, got %q", sent.Text)
	}
	if sent.SentAt.IsZero() {
		t.Fatalf("expected sent_at to be stamped")
	}

	if _, err := svc.Send(ctx, "general", sender.ID, "   "); err == nil {
		t.Fatalf("expected empty text to be rejected")
	}
	if _, err := svc.Send(ctx, "general", "ghost", "hi"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected unknown sender rejection, got %v", err)
	}

	msgs, err := svc.List(ctx, "general", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hello" {
		t.Fatalf("unexpected messages %v", msgs)
	}
}

func TestListLimitKeepsNewest(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	sender, err := store.CreateUser(ctx, user.User{Name: "Bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("create sender: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := svc.Send(ctx, "room", sender.ID, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	msgs, err := svc.List(ctx, "room", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "msg-3" || msgs[1].Text != "msg-4" {
		t.Fatalf("expected newest two in order, got %v", msgs)
	}
}
