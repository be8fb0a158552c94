package container

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/serroba/shortener-go/internal/analytics"
	"github.com/serroba/shortener-go/internal/carbon"
	"github.com/serroba/shortener-go/internal/handlers"
	"github.com/serroba/shortener-go/internal/health"
	"github.com/serroba/shortener-go/internal/messaging"
	"github.com/serroba/shortener-go/internal/metrics"
	"github.com/serroba/shortener-go/internal/middleware"
	"github.com/serroba/shortener-go/internal/ratelimit"
	"github.com/serroba/shortener-go/internal/shortener"
	"github.com/serroba/shortener-go/internal/store"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Handle("/metrics", promhttp.HandlerFor(do.MustInvoke[*prometheus.Registry](i), promhttp.HandlerOpts{}))

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		publisher := do.MustInvoke[*messaging.PublisherGroup](i).Publisher()

		api := humachi.New(do.MustInvoke[*chi.Mux](i), huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.RateLimiter(api, do.MustInvoke[*ratelimit.SlidingWindowLimiter](i), logger.Named("ratelimit")),
		)

		urlHandler := handlers.NewURLHandler(
			do.MustInvoke[*shortener.Service](i),
			opts.PublicBaseURL(),
			opts.Account,
			do.MustInvoke[metrics.Recorder](i),
			messaging.NewPublishFunc[analytics.URLShortenedEvent](publisher, analytics.TopicURLShortened),
			messaging.NewPublishFunc[analytics.URLResolvedEvent](publisher, analytics.TopicURLResolved),
			logger,
		)

		handlers.RegisterRoutes(api, urlHandler)
		health.RegisterRoutes(api, health.NewHandler(checkers(i, opts)))

		return api, nil
	})
}

func checkers(i *do.Injector, opts *Options) map[string]health.Checker {
	out := map[string]health.Checker{
		"postgres": do.MustInvoke[*store.PostgresStore](i),
		"redis":    health.NewRedisChecker(do.MustInvoke[*Redis](i).Client),
	}

	if opts.CarbonAddr != "" {
		client := do.MustInvoke[*carbon.Client](i)
		out["carbon"] = health.CheckFunc(func(context.Context) error {
			if client.State() != carbon.Connected {
				return health.ErrNotConnected
			}

			return nil
		})
	}

	return out
}
