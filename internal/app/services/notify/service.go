package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/metrics"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

// ErrUpstreamUnavailable is wrapped by announcers when the external gateway
// cannot be reached or refuses the announcement. Post state is never affected
// by an announcement failure; callers report it and move on.
var ErrUpstreamUnavailable = errors.New("announcement gateway unavailable")

// Announcer publishes a post summary to an external channel.
type Announcer interface {
	Announce(ctx context.Context, p post.Post) error
}

// AnnouncerFunc adapts a function to the Announcer interface.
type AnnouncerFunc func(ctx context.Context, p post.Post) error

func (f AnnouncerFunc) Announce(ctx context.Context, p post.Post) error {
	if f == nil {
		return nil
	}
	return f(ctx, p)
}

// HTTPAnnouncer posts announcements to a configured HTTP endpoint.
type HTTPAnnouncer struct {
	client   *http.Client
	endpoint string
	apiKey   string
	log      *logger.Logger
}

var _ Announcer = (*HTTPAnnouncer)(nil)

// NewHTTPAnnouncer builds an announcer. The client should carry a bounded
// timeout; a nil client gets a 5s default.
func NewHTTPAnnouncer(client *http.Client, endpoint, apiKey string, log *logger.Logger) (*HTTPAnnouncer, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("announce endpoint is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("notify")
	}
	return &HTTPAnnouncer{client: client, endpoint: endpoint, apiKey: apiKey, log: log}, nil
}

type announcement struct {
	PostID  string   `json:"post_id"`
	Title   string   `json:"title"`
	Status  string   `json:"post_status"`
	Tags    []string `json:"tags,omitempty"`
	DueDate string   `json:"due_date,omitempty"`
}

// Announce sends the post summary. Failures are reported, never retried here.
func (a *HTTPAnnouncer) Announce(ctx context.Context, p post.Post) error {
	err := a.announce(ctx, p)
	metrics.RecordAnnouncement(err)
	return err
}

func (a *HTTPAnnouncer) announce(ctx context.Context, p post.Post) error {
	payload := announcement{
		PostID: p.ID,
		Title:  p.Title,
		Status: string(p.Status),
		Tags:   p.Tags,
	}
	if !p.DueDate.IsZero() {
		payload.DueDate = p.DueDate.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.WithError(err).WithField("post_id", p.ID).Warn("announcement request failed")
		return fmt.Errorf("announce post %s: %w", p.ID, ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.log.WithField("post_id", p.ID).
			WithField("status", resp.StatusCode).
			Warn("announcement rejected")
		return fmt.Errorf("announce post %s: gateway returned %d: %w", p.ID, resp.StatusCode, ErrUpstreamUnavailable)
	}

	a.log.WithField("post_id", p.ID).Info("post announced")
	return nil
}
