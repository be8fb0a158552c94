package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortener-go/internal/shortener"
)

// RedisCacheRepository wraps a Repository with Redis caching for code lookups.
// Codes never change once assigned, so entries only expire through the TTL.
// Hit counting always goes to the wrapped store.
type RedisCacheRepository struct {
	store  shortener.Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:  store,
		client: client,
		prefix: "shortener:",
		ttl:    ttl,
	}
}

func (r *RedisCacheRepository) CreateNamespace(ctx context.Context, ns string) (bool, error) {
	return r.store.CreateNamespace(ctx, ns)
}

func (r *RedisCacheRepository) GetOrCreate(
	ctx context.Context, ns string, candidate *shortener.ShortURL,
) (*shortener.ShortURL, bool, error) {
	return r.store.GetOrCreate(ctx, ns, candidate)
}

func (r *RedisCacheRepository) AssignCode(ctx context.Context, ns string, id int64, code shortener.Code) error {
	return r.store.AssignCode(ctx, ns, id, code)
}

// GetByCode retrieves a short URL by its code, checking cache first.
func (r *RedisCacheRepository) GetByCode(
	ctx context.Context, ns string, code shortener.Code,
) (*shortener.ShortURL, error) {
	if url, err := r.getFromCache(ctx, ns, code); err == nil {
		return url, nil
	}

	url, err := r.store.GetByCode(ctx, ns, code)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, ns, url)

	return url, nil
}

func (r *RedisCacheRepository) IncrementHits(ctx context.Context, ns string, id int64) error {
	return r.store.IncrementHits(ctx, ns, id)
}

func (r *RedisCacheRepository) GetAudit(ctx context.Context, ns string, id int64) (*shortener.Audit, error) {
	return r.store.GetAudit(ctx, ns, id)
}

func (r *RedisCacheRepository) key(ns string, code shortener.Code) string {
	return r.prefix + ns + ":url:" + string(code)
}

func (r *RedisCacheRepository) getFromCache(
	ctx context.Context, ns string, code shortener.Code,
) (*shortener.ShortURL, error) {
	result, err := r.client.HGetAll(ctx, r.key(ns, code)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortener.ErrNotFound
	}

	id, err := strconv.ParseInt(result["id"], 10, 64)
	if err != nil {
		return nil, err
	}

	var createdAt time.Time

	if ts, ok := result["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			createdAt = time.Unix(0, nanos).UTC()
		}
	}

	return &shortener.ShortURL{
		ID:        id,
		Domain:    result["domain"],
		UserToken: result["user_token"],
		Hash:      shortener.ContentHash(result["hash"]),
		Code:      code,
		LongURL:   result["long_url"],
		CreatedAt: createdAt,
	}, nil
}

func (r *RedisCacheRepository) cacheURL(ctx context.Context, ns string, url *shortener.ShortURL) {
	if url.Code == "" {
		return
	}

	pipe := r.client.Pipeline()
	key := r.key(ns, url.Code)

	pipe.HSet(ctx, key, map[string]interface{}{
		"id":         url.ID,
		"domain":     url.Domain,
		"user_token": url.UserToken,
		"hash":       string(url.Hash),
		"long_url":   url.LongURL,
		"created_at": url.CreatedAt.UnixNano(),
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
