package app

import (
	"context"
	"testing"
	"time"
)

func TestNewRejectsBadSweepSchedule(t *testing.T) {
	if _, err := New(Stores{}, Options{SweepSchedule: "every minute"}, nil); err == nil {
		t.Fatal("expected error for a malformed sweep schedule")
	}
}

func TestNewAnnouncerFollowsOptions(t *testing.T) {
	application, err := New(Stores{}, Options{
		AnnounceURL:     "http://127.0.0.1:1/announce",
		AnnounceKey:     "key",
		AnnounceTimeout: time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if application.Announcer == nil {
		t.Fatal("expected announcer when an endpoint is configured")
	}

	bare, err := New(Stores{}, Options{}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if bare.Announcer != nil {
		t.Fatal("expected no announcer without an endpoint")
	}
}

func TestApplicationLifecycle(t *testing.T) {
	application, err := New(Stores{}, Options{SweepSchedule: "@every 1h"}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := application.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
