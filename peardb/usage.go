package peardb

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// usage counts calls to legacy entry points.
type usage struct {
	calls *prometheus.CounterVec
}

// newUsage registers the legacy call counter on reg. When another DB already
// registered an identical counter, that collector is reused.
func newUsage(reg prometheus.Registerer) (*usage, error) {
	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peardb",
			Name:      "legacy_calls_total",
			Help:      "Number of calls made through legacy database API entry points.",
		},
		[]string{"method"},
	)

	if err := reg.Register(calls); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		calls = existing
	}

	return &usage{calls: calls}, nil
}

// track increments the counter for method. Safe on a nil receiver.
func (u *usage) track(method string) {
	if u == nil {
		return
	}
	u.calls.WithLabelValues(method).Inc()
}
