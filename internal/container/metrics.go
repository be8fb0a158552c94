package container

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do"
	"github.com/serroba/shortener-go/internal/carbon"
	"github.com/serroba/shortener-go/internal/metrics"
	"go.uber.org/zap"
)

// MetricsPackage provides the Prometheus registry, the Carbon client and the
// combined metrics.Recorder.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*prometheus.Registry, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		return reg, nil
	})

	do.Provide(injector, func(i *do.Injector) (*carbon.Client, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if err := opts.validateCarbon(); err != nil {
			return nil, err
		}

		minRetry, maxRetry := opts.carbonRetry()
		client := carbon.NewClient(opts.CarbonAddr, logger.Named("carbon"),
			carbon.WithBackOff(func() backoff.BackOff {
				return carbon.NewBackOff(minRetry, maxRetry)
			}),
		)

		if err := client.Start(context.Background()); err != nil {
			return nil, err
		}

		return client, nil
	})

	do.Provide(injector, func(i *do.Injector) (metrics.Recorder, error) {
		opts := do.MustInvoke[*Options](i)

		prom, err := metrics.NewPrometheusRecorder(do.MustInvoke[*prometheus.Registry](i))
		if err != nil {
			return nil, err
		}

		if opts.CarbonAddr == "" {
			return prom, nil
		}

		return metrics.Multi{prom, metrics.NewCarbonRecorder(do.MustInvoke[*carbon.Client](i))}, nil
	})
}
