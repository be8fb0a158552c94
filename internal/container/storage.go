package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortener-go/internal/keygen"
	"github.com/serroba/shortener-go/internal/ratelimit"
	"github.com/serroba/shortener-go/internal/shortener"
	"github.com/serroba/shortener-go/internal/store"
)

// Postgres owns the connection pool so the injector can close it.
type Postgres struct {
	*pgxpool.Pool
}

func (p *Postgres) Shutdown() error {
	p.Close()

	return nil
}

// Redis owns the client so the injector can close it.
type Redis struct {
	*redis.Client
}

func (r *Redis) Shutdown() error {
	return r.Close()
}

// PostgresPackage provides the pgx pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &Postgres{Pool: pool}, nil
	})
}

// RedisPackage provides the redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)

		return &Redis{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// RepositoryPackage provides the Postgres store, the cached repository on top
// of it and the shortener service.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*store.PostgresStore, error) {
		return store.NewPostgresStore(do.MustInvoke[*Postgres](i).Pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		pg := do.MustInvoke[*store.PostgresStore](i)

		if opts.CacheTTL <= 0 {
			return pg, nil
		}

		return store.NewRedisCacheRepository(pg, do.MustInvoke[*Redis](i).Client, opts.cacheTTL()), nil
	})

	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		return shortener.NewService(do.MustInvoke[shortener.Repository](i), keygen.Default().Generate), nil
	})
}

// RateLimitPackage provides the sliding window limiter.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.RateLimitStore {
		case "memory":
			return store.NewRateLimitMemoryStore(), nil
		case "redis":
			return store.NewRateLimitRedisStore(do.MustInvoke[*Redis](i).Client), nil
		default:
			return nil, fmt.Errorf("unknown rate limit store %q", opts.RateLimitStore)
		}
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.SlidingWindowLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		return ratelimit.NewSlidingWindowLimiter(
			do.MustInvoke[ratelimit.Store](i),
			ratelimit.LimitConfig{Window: time.Minute, Max: opts.RateLimit},
		), nil
	})
}
