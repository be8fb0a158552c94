package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/shortener-go/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedSample struct {
	name  string
	value float64
}

type fakePublisher struct {
	samples []publishedSample
}

func (f *fakePublisher) Publish(name string, value float64, _ int64) {
	f.samples = append(f.samples, publishedSample{name: name, value: value})
}

func TestCountMetric(t *testing.T) {
	assert.Equal(t, "acme.created.bar.count", metrics.CountMetric("acme", metrics.EventCreated, "bar"))
	assert.Equal(t, "acme.invalid.a_b.count", metrics.CountMetric("acme", metrics.EventInvalid, "a b"))
}

func TestCarbonRecorder(t *testing.T) {
	pub := &fakePublisher{}
	r := metrics.NewCarbonRecorder(pub)

	r.URLCreated("acme", "bar")
	r.URLExpanded("acme", "bar")
	r.URLInvalid("acme", "generic-user-token")

	assert.Equal(t, []publishedSample{
		{name: "acme.created.bar.count", value: 1},
		{name: "acme.expanded.bar.count", value: 1},
		{name: "acme.invalid.generic-user-token.count", value: 1},
	}, pub.samples)
}

func TestPrometheusRecorder(t *testing.T) {
	t.Run("counts by account and event", func(t *testing.T) {
		r, err := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		require.NoError(t, err)

		r.URLCreated("acme", "bar")
		r.URLCreated("acme", "baz")
		r.URLExpanded("acme", "bar")

		assert.InDelta(t, 2, testutil.ToFloat64(r.Events().WithLabelValues("acme", metrics.EventCreated)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(r.Events().WithLabelValues("acme", metrics.EventExpanded)), 0)
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()

		_, err := metrics.NewPrometheusRecorder(reg)
		require.NoError(t, err)

		_, err = metrics.NewPrometheusRecorder(reg)
		assert.Error(t, err)
	})
}

func TestMulti(t *testing.T) {
	a, b := &fakePublisher{}, &fakePublisher{}
	m := metrics.Multi{metrics.NewCarbonRecorder(a), metrics.NewCarbonRecorder(b)}

	m.URLExpanded("acme", "bar")

	assert.Len(t, a.samples, 1)
	assert.Len(t, b.samples, 1)
}
