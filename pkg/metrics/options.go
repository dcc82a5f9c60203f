// Package metrics provides Prometheus metrics for the reputation service.
package metrics

import (
	"maps"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager before its collectors are registered.
type Option func(*Manager)

// WithNamespace prefixes every metric name. Empty keeps "reputation".
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithEnabled turns recording on or off. A disabled manager still
// registers its collectors so /metrics keeps a stable shape.
func WithEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval sets how often the gauge updaters in cmd run.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithLatencyBuckets replaces the millisecond buckets shared by the store
// and HTTP latency histograms.
func WithLatencyBuckets(bucketsMs []float64) Option {
	return func(m *Manager) {
		if len(bucketsMs) > 0 {
			m.histogramBuckets = slices.Clone(bucketsMs)
		}
	}
}

// WithConstLabels attaches labels such as env or region to every series.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.customLabels = maps.Clone(labels)
		}
	}
}

// WithRegistry registers collectors on r instead of the default registerer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}
