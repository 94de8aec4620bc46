package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
)

func TestAnnounceSendsSummary(t *testing.T) {
	var got announcement
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	announcer, err := NewHTTPAnnouncer(server.Client(), server.URL, "secret", nil)
	if err != nil {
		t.Fatalf("new announcer: %v", err)
	}

	due := time.Date(2026, 9, 20, 12, 0, 0, 0, time.UTC)
	p := post.Post{ID: "p1", Title: "Fix the sink", Status: post.StatusOpen, Tags: []string{"home"}, DueDate: due}
	if err := announcer.Announce(context.Background(), p); err != nil {
		t.Fatalf("announce: %v", err)
	}

	if got.PostID != "p1" || got.Title != "Fix the sink" || got.Status != "OPEN" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got.DueDate != due.Format(time.RFC3339) {
		t.Fatalf("unexpected due date %q", got.DueDate)
	}
	if auth != "Bearer secret" {
		t.Fatalf("expected api key header, got %q", auth)
	}
}

func TestAnnounceWrapsGatewayFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	announcer, err := NewHTTPAnnouncer(server.Client(), server.URL, "", nil)
	if err != nil {
		t.Fatalf("new announcer: %v", err)
	}

	err = announcer.Announce(context.Background(), post.Post{ID: "p1", Title: "t", Status: post.StatusOpen})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestAnnounceWrapsTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	announcer, err := NewHTTPAnnouncer(&http.Client{Timeout: time.Second}, server.URL, "", nil)
	if err != nil {
		t.Fatalf("new announcer: %v", err)
	}

	err = announcer.Announce(context.Background(), post.Post{ID: "p1", Title: "t", Status: post.StatusOpen})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestNewHTTPAnnouncerRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPAnnouncer(nil, "  ", "", nil); err == nil {
		t.Fatalf("expected missing endpoint to be rejected")
	}
}
