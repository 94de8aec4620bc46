package storage

import (
	"context"
	"errors"

	"github.com/taskhub-io/taskhub/internal/app/domain/message"
	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/domain/user"
)

var (
	// ErrNotFound is wrapped by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped by stores when an update loses the version check.
	ErrConflict = errors.New("version conflict")
)

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// PostStore persists task posts. UpdatePost compares the snapshot's Version
// against the stored record and fails with ErrConflict on a mismatch; the
// stored version is incremented on every successful write.
type PostStore interface {
	CreatePost(ctx context.Context, p post.Post) (post.Post, error)
	UpdatePost(ctx context.Context, p post.Post) (post.Post, error)
	GetPost(ctx context.Context, id string) (post.Post, error)
	ListPosts(ctx context.Context, ownerID string, status post.Status) ([]post.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// MessageStore persists room messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg message.Message) (message.Message, error)
	ListMessages(ctx context.Context, roomID string, limit int) ([]message.Message, error)
}
