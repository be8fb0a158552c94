package container_test

import (
	"testing"

	"github.com/samber/do"
	"github.com/serroba/shortener-go/internal/carbon"
	"github.com/serroba/shortener-go/internal/container"
	"github.com/serroba/shortener-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOptions_PublicBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8888", (&container.Options{Port: 8888}).PublicBaseURL())
	assert.Equal(t, "https://sho.rt", (&container.Options{Port: 8888, BaseURL: "https://sho.rt"}).PublicBaseURL())
}

func TestOptions_Validate(t *testing.T) {
	valid := func() *container.Options {
		return &container.Options{CarbonAddr: "localhost:2003", CarbonMinRetry: 500, CarbonMaxRetry: 30000}
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(o *container.Options){
		"zero min retry":     func(o *container.Options) { o.CarbonMinRetry = 0 },
		"negative min retry": func(o *container.Options) { o.CarbonMinRetry = -1 },
		"zero max retry":     func(o *container.Options) { o.CarbonMaxRetry = 0 },
		"max below min":      func(o *container.Options) { o.CarbonMaxRetry = 100 },
		"negative cache ttl": func(o *container.Options) { o.CacheTTL = -1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := valid()
			mutate(o)

			assert.ErrorIs(t, o.Validate(), container.ErrInvalidOptions)
		})
	}

	t.Run("retry settings are ignored without carbon", func(t *testing.T) {
		o := valid()
		o.CarbonAddr = ""
		o.CarbonMinRetry = 0

		assert.NoError(t, o.Validate())
	})
}

func TestMetricsPackage(t *testing.T) {
	t.Run("refuses a zero carbon retry", func(t *testing.T) {
		injector := do.New()
		do.ProvideValue(injector, &container.Options{CarbonAddr: "localhost:2003", CarbonMaxRetry: 1000})
		container.LoggerPackage(injector)
		container.MetricsPackage(injector)

		_, err := do.Invoke[*carbon.Client](injector)

		assert.ErrorIs(t, err, container.ErrInvalidOptions)
	})
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"", "console", "json"} {
		logger, err := container.NewLogger(format)

		require.NoError(t, err, format)
		assert.NotNil(t, logger)
	}

	_, err := container.NewLogger("xml")
	assert.Error(t, err)
}

func TestRateLimitPackage(t *testing.T) {
	t.Run("wires the memory store", func(t *testing.T) {
		injector := do.New()
		do.ProvideValue(injector, &container.Options{RateLimit: 10, RateLimitStore: "memory"})
		container.RateLimitPackage(injector)

		limiter, err := do.Invoke[*ratelimit.SlidingWindowLimiter](injector)

		require.NoError(t, err)
		assert.NotNil(t, limiter)
	})

	t.Run("rejects unknown stores", func(t *testing.T) {
		injector := do.New()
		do.ProvideValue(injector, &container.Options{RateLimitStore: "etcd"})
		container.RateLimitPackage(injector)

		_, err := do.Invoke[ratelimit.Store](injector)

		assert.Error(t, err)
	})
}

func TestLoggerPackage(t *testing.T) {
	injector := do.New()
	do.ProvideValue(injector, &container.Options{LogFormat: "json"})
	container.LoggerPackage(injector)

	logger, err := do.Invoke[*zap.Logger](injector)

	require.NoError(t, err)
	assert.NotNil(t, logger)
}
