// SPDX-License-Identifier: MPL-2.0

// Package metrics counts installer activity for node-exporter textfile
// collection.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "melonpatch"

// Operation status labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

type (
	// Metrics records installer activity.
	Metrics interface {
		// AddExtracted counts entries written into a canonical bucket.
		AddExtracted(bucket string, n int)
		// AddSkipped counts archive entries not written.
		AddSkipped(n int)
		// AddInjected counts runtime files injected into packages.
		AddInjected(n int)
		// ObserveOperation records one finished CLI operation.
		ObserveOperation(op string, err error, elapsed time.Duration)
	}

	// Noop implements Metrics without recording anything.
	Noop struct{}

	// Prom implements Metrics with Prometheus collectors on a private registry.
	Prom struct {
		registry  *prometheus.Registry
		extracted *prometheus.CounterVec
		skipped   prometheus.Counter
		injected  prometheus.Counter
		ops       *prometheus.CounterVec
		duration  *prometheus.HistogramVec
		once      sync.Once
	}
)

func (Noop) AddExtracted(string, int)                      {}
func (Noop) AddSkipped(int)                                {}
func (Noop) AddInjected(int)                               {}
func (Noop) ObserveOperation(string, error, time.Duration) {}

// NewProm returns a Prom with its collectors registered.
func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		extracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "entries_extracted_total",
			Help:      "Archive entries written into the canonical tree by bucket",
		}, []string{"bucket"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "entries_skipped_total",
			Help:      "Archive entries not written",
		}),
		injected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "files_injected_total",
			Help:      "Runtime files injected into application packages",
		}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Operations by name and status",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation duration by name",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"op"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		p.registry.MustRegister(p.extracted, p.skipped, p.injected, p.ops, p.duration)
	})
}

// Registry returns the registry holding the collectors.
func (p *Prom) Registry() *prometheus.Registry { return p.registry }

func (p *Prom) AddExtracted(bucket string, n int) {
	if n > 0 {
		p.extracted.WithLabelValues(bucket).Add(float64(n))
	}
}

func (p *Prom) AddSkipped(n int) {
	if n > 0 {
		p.skipped.Add(float64(n))
	}
}

func (p *Prom) AddInjected(n int) {
	if n > 0 {
		p.injected.Add(float64(n))
	}
}

func (p *Prom) ObserveOperation(op string, err error, elapsed time.Duration) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	p.ops.WithLabelValues(op, status).Inc()
	p.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// WriteTextfile writes all collected metrics to path in the text exposition
// format. The file is replaced atomically.
func (p *Prom) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
