package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskhub-io/taskhub/internal/app/domain/message"
	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/domain/user"
	"github.com/taskhub-io/taskhub/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[string]user.User
	usersByEmail map[string]string
	posts        map[string]post.Post
	messages     map[string][]message.Message
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.MessageStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:       1,
		users:        make(map[string]user.User),
		usersByEmail: make(map[string]string),
		posts:        make(map[string]post.Post),
		messages:     make(map[string][]message.Message),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}

	emailKey := strings.ToLower(strings.TrimSpace(u.Email))
	if emailKey != "" {
		if existing, exists := s.usersByEmail[emailKey]; exists {
			return user.User{}, fmt.Errorf("email %s already registered to user %s", u.Email, existing)
		}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Skills = append([]string(nil), u.Skills...)

	s.users[u.ID] = u
	if emailKey != "" {
		s.usersByEmail[emailKey] = u.ID
	}
	return cloneUser(u), nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}

	oldKey := strings.ToLower(strings.TrimSpace(original.Email))
	newKey := strings.ToLower(strings.TrimSpace(u.Email))
	if newKey != "" {
		if existing, exists := s.usersByEmail[newKey]; exists && existing != u.ID {
			return user.User{}, fmt.Errorf("email %s already registered to user %s", u.Email, existing)
		}
	}

	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	u.Skills = append([]string(nil), u.Skills...)

	s.users[u.ID] = u
	if oldKey != "" && oldKey != newKey {
		delete(s.usersByEmail, oldKey)
	}
	if newKey != "" {
		s.usersByEmail[newKey] = u.ID
	}
	return cloneUser(u), nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
		return cloneUser(s.users[id]), nil
	}
	return user.User{}, fmt.Errorf("user with email %s: %w", email, storage.ErrNotFound)
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, cloneUser(u))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// PostStore implementation ----------------------------------------------------

func (s *Store) CreatePost(_ context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.posts[p.ID]; exists {
		return post.Post{}, fmt.Errorf("post %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1
	p.Tags = append([]string(nil), p.Tags...)
	p.AppliedUserIDs = append([]string(nil), p.AppliedUserIDs...)

	s.posts[p.ID] = p
	return clonePost(p), nil
}

// UpdatePost applies the snapshot only if its version still matches the
// stored record, mirroring the conditional update of the SQL store.
func (s *Store) UpdatePost(_ context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.posts[p.ID]
	if !ok {
		return post.Post{}, fmt.Errorf("post %s: %w", p.ID, storage.ErrNotFound)
	}
	if original.Version != p.Version {
		return post.Post{}, fmt.Errorf("post %s at version %d: %w", p.ID, original.Version, storage.ErrConflict)
	}

	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Version = original.Version + 1
	p.Tags = append([]string(nil), p.Tags...)
	p.AppliedUserIDs = append([]string(nil), p.AppliedUserIDs...)

	s.posts[p.ID] = p
	return clonePost(p), nil
}

func (s *Store) GetPost(_ context.Context, id string) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return post.Post{}, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return clonePost(p), nil
}

func (s *Store) ListPosts(_ context.Context, ownerID string, status post.Status) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]post.Post, 0)
	for _, p := range s.posts {
		if ownerID != "" && p.OwnerID != ownerID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		result = append(result, clonePost(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	delete(s.posts, id)
	return nil
}

// MessageStore implementation -------------------------------------------------

func (s *Store) CreateMessage(_ context.Context, msg message.Message) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = s.nextIDLocked()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	s.messages[msg.RoomID] = append(s.messages[msg.RoomID], msg)
	return msg, nil
}

func (s *Store) ListMessages(_ context.Context, roomID string, limit int) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.messages[roomID]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]message.Message(nil), entries...), nil
}

// Helpers --------------------------------------------------------------------

func cloneUser(u user.User) user.User {
	u.Skills = append([]string(nil), u.Skills...)
	return u
}

func clonePost(p post.Post) post.Post {
	p.Tags = append([]string(nil), p.Tags...)
	p.AppliedUserIDs = append([]string(nil), p.AppliedUserIDs...)
	return p
}
