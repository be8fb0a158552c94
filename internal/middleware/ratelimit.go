package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortener-go/internal/ratelimit"
	"go.uber.org/zap"
)

// Limiter decides whether a client may call a route.
type Limiter interface {
	Allow(ctx context.Context, clientKey, route string, limits []ratelimit.LimitConfig) (bool, *ratelimit.Exceeded, error)
}

// RateLimiter limits requests per client and operation. Operations carry
// their own limits in metadata under ratelimit.MetadataKey.
func RateLimiter(api huma.API, limiter Limiter, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		var cfg ratelimit.EndpointConfig

		route := ctx.Method() + " " + ctx.URL().Path

		if op := ctx.Operation(); op != nil {
			route = op.Method + " " + op.Path

			if c, ok := op.Metadata[ratelimit.MetadataKey].(ratelimit.EndpointConfig); ok {
				cfg = c
			}
		}

		if cfg.Disabled {
			next(ctx)

			return
		}

		allowed, exceeded, err := limiter.Allow(ctx.Context(), clientKey(ctx), route, cfg.Limits)
		if err != nil {
			logger.Error("rate limiter unavailable", zap.String("route", route), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !allowed {
			logger.Debug("rate limit exceeded",
				zap.String("route", route),
				zap.Stringer("limit", exceeded),
			)
			ctx.SetHeader("Retry-After", strconv.Itoa(int(exceeded.Limit.Window.Seconds())))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next(ctx)
	}
}

// clientKey identifies a client by IP and User-Agent.
func clientKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(clientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}
