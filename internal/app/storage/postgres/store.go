package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub-io/taskhub/internal/app/domain/message"
	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/domain/user"
	"github.com/taskhub-io/taskhub/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.MessageStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	skillsJSON, err := json.Marshal(u.Skills)
	if err != nil {
		return user.User{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_users (id, name, email, skills, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Name, u.Email, skillsJSON, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}

	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	skillsJSON, err := json.Marshal(u.Skills)
	if err != nil {
		return user.User{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET name = $2, email = $3, skills = $4, updated_at = $5
		WHERE id = $1
	`, u.ID, u.Name, u.Email, skillsJSON, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, skills, created_at, updated_at
		FROM app_users
		WHERE id = $1
	`, id)
	return scanUser(row, fmt.Sprintf("user %s", id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, skills, created_at, updated_at
		FROM app_users
		WHERE lower(email) = lower($1)
	`, email)
	return scanUser(row, fmt.Sprintf("user with email %s", email))
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, skills, created_at, updated_at
		FROM app_users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		var (
			u         user.User
			skillsRaw []byte
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &skillsRaw, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if len(skillsRaw) > 0 {
			_ = json.Unmarshal(skillsRaw, &u.Skills)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func scanUser(row *sql.Row, label string) (user.User, error) {
	var (
		u         user.User
		skillsRaw []byte
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &skillsRaw, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, fmt.Errorf("%s: %w", label, storage.ErrNotFound)
		}
		return user.User{}, err
	}
	if len(skillsRaw) > 0 {
		_ = json.Unmarshal(skillsRaw, &u.Skills)
	}
	return u, nil
}

// --- PostStore --------------------------------------------------------------

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	if p.OwnerID == "" {
		return post.Post{}, errors.New("owner_id required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1

	tagsJSON, appliedJSON, err := marshalPostLists(p)
	if err != nil {
		return post.Post{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_posts (id, title, description, owner_id, tags, due_date, status, applied_users, assigned_user_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.Title, p.Description, p.OwnerID, tagsJSON, toNullTime(p.DueDate), string(p.Status), appliedJSON, p.AssignedUserID, p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return post.Post{}, err
	}
	return p, nil
}

// UpdatePost performs a conditional write: the row is only updated when the
// stored version matches the snapshot's version. Zero rows affected means
// either the post is gone or another writer got there first.
func (s *Store) UpdatePost(ctx context.Context, p post.Post) (post.Post, error) {
	p.UpdatedAt = time.Now().UTC()

	tagsJSON, appliedJSON, err := marshalPostLists(p)
	if err != nil {
		return post.Post{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_posts
		SET title = $2, description = $3, tags = $4, due_date = $5, status = $6, applied_users = $7, assigned_user_id = $8, version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $10
	`, p.ID, p.Title, p.Description, tagsJSON, toNullTime(p.DueDate), string(p.Status), appliedJSON, p.AssignedUserID, p.UpdatedAt, p.Version)
	if err != nil {
		return post.Post{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, getErr := s.GetPost(ctx, p.ID); getErr != nil {
			return post.Post{}, getErr
		}
		return post.Post{}, fmt.Errorf("post %s at version %d: %w", p.ID, p.Version, storage.ErrConflict)
	}
	p.Version++
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (post.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, owner_id, tags, due_date, status, applied_users, assigned_user_id, version, created_at, updated_at
		FROM app_posts
		WHERE id = $1
	`, id)

	p, err := scanPost(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return post.Post{}, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
		}
		return post.Post{}, err
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, ownerID string, status post.Status) ([]post.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, owner_id, tags, due_date, status, applied_users, assigned_user_id, version, created_at, updated_at
		FROM app_posts
		WHERE ($1 = '' OR owner_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at
	`, ownerID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []post.Post
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM app_posts WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func marshalPostLists(p post.Post) ([]byte, []byte, error) {
	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return nil, nil, err
	}
	appliedJSON, err := json.Marshal(p.AppliedUserIDs)
	if err != nil {
		return nil, nil, err
	}
	return tagsJSON, appliedJSON, nil
}

func scanPost(scan func(dest ...any) error) (post.Post, error) {
	var (
		p          post.Post
		tagsRaw    []byte
		appliedRaw []byte
		dueDate    sql.NullTime
		status     string
	)
	if err := scan(&p.ID, &p.Title, &p.Description, &p.OwnerID, &tagsRaw, &dueDate, &status, &appliedRaw, &p.AssignedUserID, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return post.Post{}, err
	}
	p.Status = post.Status(status)
	if dueDate.Valid {
		p.DueDate = dueDate.Time.UTC()
	}
	if len(tagsRaw) > 0 {
		_ = json.Unmarshal(tagsRaw, &p.Tags)
	}
	if len(appliedRaw) > 0 {
		_ = json.Unmarshal(appliedRaw, &p.AppliedUserIDs)
	}
	return p, nil
}

// --- MessageStore -----------------------------------------------------------

func (s *Store) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_messages (id, room_id, sender_id, text, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.RoomID, msg.SenderID, msg.Text, msg.SentAt)
	if err != nil {
		return message.Message{}, err
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, roomID string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, sender_id, text, sent_at
		FROM (
			SELECT id, room_id, sender_id, text, sent_at
			FROM app_messages
			WHERE room_id = $1
			ORDER BY sent_at DESC
			LIMIT $2
		) latest
		ORDER BY sent_at
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []message.Message
	for rows.Next() {
		var msg message.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Text, &msg.SentAt); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
