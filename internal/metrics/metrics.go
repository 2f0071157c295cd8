// Package metrics exposes prometheus collectors for the dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"launchdash/internal/dataset"
	"launchdash/internal/reactive"
)

const namespace = "launchdash"

// Metrics holds the dashboard's collectors.
type Metrics struct {
	CallbackInvocations *prometheus.CounterVec
	CallbackDuration    *prometheus.HistogramVec
	DatasetRecords      prometheus.Gauge
	DatasetSites        prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallbackInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_invocations_total",
			Help:      "Chart callback invocations by output and result.",
		}, []string{"output", "result"}),
		CallbackDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "callback_duration_seconds",
			Help:      "Time spent recomputing a chart.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"output"}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Launch records loaded at startup.",
		}),
		DatasetSites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_sites",
			Help:      "Distinct launch sites in the dataset.",
		}),
	}
	reg.MustRegister(m.CallbackInvocations, m.CallbackDuration, m.DatasetRecords, m.DatasetSites)
	return m
}

// ObserveDataset records the size of the loaded table.
func (m *Metrics) ObserveDataset(t *dataset.Table) {
	m.DatasetRecords.Set(float64(t.Len()))
	m.DatasetSites.Set(float64(len(t.Sites())))
}

// Observer returns a reactive.Observer feeding the callback collectors.
func (m *Metrics) Observer() reactive.Observer {
	return func(output reactive.Dependency, took time.Duration, err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.CallbackInvocations.WithLabelValues(output.ID, result).Inc()
		m.CallbackDuration.WithLabelValues(output.ID).Observe(took.Seconds())
	}
}
