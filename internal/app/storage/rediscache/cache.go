// Package rediscache decorates a PostStore with a read-through Redis cache.
// Only single-post reads are cached; every write invalidates the cached entry
// so workflow operations always observe fresh versions after a conflict.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

const keyPrefix = "post:"

// PostCache wraps an underlying PostStore.
type PostCache struct {
	inner  storage.PostStore
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

var _ storage.PostStore = (*PostCache)(nil)

// NewPostCache builds a cache layer around inner. A zero ttl defaults to 30s.
func NewPostCache(inner storage.PostStore, client *redis.Client, ttl time.Duration, log *logger.Logger) *PostCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("rediscache")
	}
	return &PostCache{inner: inner, client: client, ttl: ttl, log: log}
}

func (c *PostCache) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	created, err := c.inner.CreatePost(ctx, p)
	if err != nil {
		return post.Post{}, err
	}
	c.invalidate(ctx, created.ID)
	return created, nil
}

func (c *PostCache) UpdatePost(ctx context.Context, p post.Post) (post.Post, error) {
	updated, err := c.inner.UpdatePost(ctx, p)
	// Invalidate even on failure: a conflict means our cached copy is stale.
	c.invalidate(ctx, p.ID)
	if err != nil {
		return post.Post{}, err
	}
	return updated, nil
}

func (c *PostCache) GetPost(ctx context.Context, id string) (post.Post, error) {
	raw, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if err == nil {
		var p post.Post
		if unmarshalErr := json.Unmarshal(raw, &p); unmarshalErr == nil {
			return p, nil
		}
		c.invalidate(ctx, id)
	} else if !errors.Is(err, redis.Nil) {
		c.log.WithError(err).WithField("post_id", id).Warn("post cache read failed")
	}

	p, err := c.inner.GetPost(ctx, id)
	if err != nil {
		return post.Post{}, err
	}
	if encoded, marshalErr := json.Marshal(p); marshalErr == nil {
		if setErr := c.client.Set(ctx, keyPrefix+id, encoded, c.ttl).Err(); setErr != nil {
			c.log.WithError(setErr).WithField("post_id", id).Warn("post cache write failed")
		}
	}
	return p, nil
}

func (c *PostCache) ListPosts(ctx context.Context, ownerID string, status post.Status) ([]post.Post, error) {
	return c.inner.ListPosts(ctx, ownerID, status)
}

func (c *PostCache) DeletePost(ctx context.Context, id string) error {
	if err := c.inner.DeletePost(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *PostCache) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		c.log.WithError(err).WithField("post_id", id).Warn("post cache invalidation failed")
	}
}
