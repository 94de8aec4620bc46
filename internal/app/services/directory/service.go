package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskhub-io/taskhub/internal/app/domain/user"
	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

// Service manages the user directory. Users are created lazily the first time
// an email is resolved; the email is the external identity.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a directory service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("directory")
	}
	return &Service{store: store, log: log}
}

// ResolveByEmail returns the user registered under email, creating a minimal
// record when none exists. The lookup and create are distinct steps; a lost
// create race falls back to a second lookup.
func (s *Service) ResolveByEmail(ctx context.Context, email, name string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, fmt.Errorf("a valid email is required")
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	created, err := s.store.CreateUser(ctx, user.User{Name: name, Email: email})
	if err != nil {
		// Another resolver may have created the record in between.
		if resolved, lookupErr := s.store.GetUserByEmail(ctx, email); lookupErr == nil {
			return resolved, nil
		}
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).
		WithField("email", created.Email).
		Info("user registered")
	return created, nil
}

// GetByID returns a single user.
func (s *Service) GetByID(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// UpdateSkills replaces the user's skill list. Entries are trimmed and
// de-duplicated, preserving first occurrence order.
func (s *Service) UpdateSkills(ctx context.Context, id string, skills []string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	seen := make(map[string]struct{}, len(skills))
	cleaned := make([]string, 0, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, skill)
	}

	u.Skills = cleaned
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).
		WithField("skills", len(cleaned)).
		Info("user skills updated")
	return updated, nil
}

// List lists all users.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}
