// Package metrics records shortener usage events.
package metrics

import (
	"strings"
	"time"
)

// Event names used in metric paths and labels.
const (
	EventCreated  = "created"
	EventExpanded = "expanded"
	EventInvalid  = "invalid"
)

// Recorder captures usage events per account and caller token.
type Recorder interface {
	URLCreated(account, userToken string)
	URLExpanded(account, userToken string)
	URLInvalid(account, userToken string)
}

// Publisher accepts named samples. *carbon.Client satisfies it.
type Publisher interface {
	Publish(name string, value float64, timestamp int64)
}

// CarbonRecorder publishes one count sample per event, named
// <account>.<event>.<user token>.count.
type CarbonRecorder struct {
	publisher Publisher
	now       func() time.Time
}

// NewCarbonRecorder creates a CarbonRecorder.
func NewCarbonRecorder(publisher Publisher) *CarbonRecorder {
	return &CarbonRecorder{publisher: publisher, now: time.Now}
}

func (r *CarbonRecorder) URLCreated(account, userToken string) {
	r.publish(account, EventCreated, userToken)
}

func (r *CarbonRecorder) URLExpanded(account, userToken string) {
	r.publish(account, EventExpanded, userToken)
}

func (r *CarbonRecorder) URLInvalid(account, userToken string) {
	r.publish(account, EventInvalid, userToken)
}

func (r *CarbonRecorder) publish(account, event, userToken string) {
	r.publisher.Publish(CountMetric(account, event, userToken), 1, r.now().Unix())
}

// pathSanitizer keeps whitespace out of the plaintext protocol.
var pathSanitizer = strings.NewReplacer(" ", "_", "\t", "_", "\n", "_", "\r", "_")

// CountMetric builds the metric path for an event counter.
func CountMetric(account, event, userToken string) string {
	return pathSanitizer.Replace(account + "." + event + "." + userToken + ".count")
}

// Multi fans events out to several recorders.
type Multi []Recorder

func (m Multi) URLCreated(account, userToken string) {
	for _, r := range m {
		r.URLCreated(account, userToken)
	}
}

func (m Multi) URLExpanded(account, userToken string) {
	for _, r := range m {
		r.URLExpanded(account, userToken)
	}
}

func (m Multi) URLInvalid(account, userToken string) {
	for _, r := range m {
		r.URLInvalid(account, userToken)
	}
}
