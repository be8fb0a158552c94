package metrics

import "github.com/prometheus/client_golang/prometheus"

// PrometheusRecorder counts events in shortener_url_events_total. Caller
// tokens are left out of the labels to bound cardinality.
type PrometheusRecorder struct {
	events *prometheus.CounterVec
}

// NewPrometheusRecorder creates the counter and registers it with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shortener",
		Name:      "url_events_total",
		Help:      "Shortener events by account and event type.",
	}, []string{"account", "event"})

	if err := reg.Register(events); err != nil {
		return nil, err
	}

	return &PrometheusRecorder{events: events}, nil
}

func (r *PrometheusRecorder) URLCreated(account, _ string) {
	r.events.WithLabelValues(account, EventCreated).Inc()
}

func (r *PrometheusRecorder) URLExpanded(account, _ string) {
	r.events.WithLabelValues(account, EventExpanded).Inc()
}

func (r *PrometheusRecorder) URLInvalid(account, _ string) {
	r.events.WithLabelValues(account, EventInvalid).Inc()
}

// Events exposes the underlying counter.
func (r *PrometheusRecorder) Events() *prometheus.CounterVec {
	return r.events
}
