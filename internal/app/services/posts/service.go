package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

var (
	// ErrNotOwner is returned when a caller mutates a post they do not own.
	ErrNotOwner = errors.New("caller does not own this post")
	// ErrNotEditable is returned when a post can no longer be edited.
	ErrNotEditable = errors.New("post can no longer be edited")
)

// Service manages task post CRUD. Lifecycle transitions live in the workflow
// service; this one only touches content fields.
type Service struct {
	users storage.UserStore
	store storage.PostStore
	log   *logger.Logger
}

// New constructs a posts service.
func New(users storage.UserStore, store storage.PostStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("posts")
	}
	return &Service{users: users, store: store, log: log}
}

// Create opens a new post owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID, title, description string, tags []string, dueDate time.Time) (post.Post, error) {
	title = strings.TrimSpace(title)
	if strings.TrimSpace(ownerID) == "" || title == "" {
		return post.Post{}, fmt.Errorf("owner and title are required")
	}
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, ownerID); err != nil {
			return post.Post{}, fmt.Errorf("owner validation failed: %w", err)
		}
	}

	created, err := s.store.CreatePost(ctx, post.Post{
		Title:       title,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		Tags:        normalizeTags(tags),
		DueDate:     dueDate,
		Status:      post.StatusOpen,
	})
	if err != nil {
		return post.Post{}, err
	}
	s.log.WithField("post_id", created.ID).
		WithField("owner_id", ownerID).
		Info("post created")
	return created, nil
}

// Get returns a single post.
func (s *Service) Get(ctx context.Context, id string) (post.Post, error) {
	return s.store.GetPost(ctx, id)
}

// List lists posts, optionally filtered by owner and status.
func (s *Service) List(ctx context.Context, ownerID string, status post.Status) ([]post.Post, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.store.ListPosts(ctx, ownerID, status)
}

// Update edits content fields on an open post. Only the owner may edit, and
// only while no one has been assigned.
func (s *Service) Update(ctx context.Context, postID, callerID string, title, description *string, tags []string, dueDate *time.Time) (post.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}
	if p.OwnerID != callerID {
		return post.Post{}, fmt.Errorf("post %s: %w", postID, ErrNotOwner)
	}
	if p.Status != post.StatusOpen {
		return post.Post{}, fmt.Errorf("post %s is %s: %w", postID, p.Status, ErrNotEditable)
	}

	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return post.Post{}, fmt.Errorf("title must not be empty")
		}
		p.Title = trimmed
	}
	if description != nil {
		p.Description = strings.TrimSpace(*description)
	}
	if tags != nil {
		p.Tags = normalizeTags(tags)
	}
	if dueDate != nil {
		p.DueDate = *dueDate
	}

	updated, err := s.store.UpdatePost(ctx, p)
	if err != nil {
		return post.Post{}, err
	}
	s.log.WithField("post_id", postID).Info("post updated")
	return updated, nil
}

// Delete removes a post. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, postID, callerID string) error {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if p.OwnerID != callerID {
		return fmt.Errorf("post %s: %w", postID, ErrNotOwner)
	}

	if err := s.store.DeletePost(ctx, postID); err != nil {
		return err
	}
	s.log.WithField("post_id", postID).
		WithField("owner_id", callerID).
		Info("post deleted")
	return nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
