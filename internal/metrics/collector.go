// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records Prometheus counters and histograms for a batch
// run. Each Collector owns its registry so several batches (and tests) can
// coexist in one process. All methods are nil-receiver safe.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/paperfetch/pkg/types"
)

const namespace = "paperfetch"

// Collector holds the metrics of one batch run.
type Collector struct {
	registry *prometheus.Registry

	adapterCalls   *prometheus.CounterVec
	fetchAttempts  *prometheus.CounterVec
	recordsTotal   *prometheus.CounterVec
	downloadsBy    *prometheus.CounterVec
	bytesTotal     prometheus.Counter
	documentSize   prometheus.Histogram
	recordDuration *prometheus.HistogramVec
}

// New creates a Collector with a fresh registry.
func New() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.adapterCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_calls_total",
			Help:      "Source adapter invocations by adapter and result (hit/miss).",
		},
		[]string{"adapter", "result"},
	)
	c.fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Download attempts by result (ok, transient, invalid).",
		},
		[]string{"result"},
	)
	c.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records processed by final status.",
		},
		[]string{"status"},
	)
	c.downloadsBy = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Downloaded documents by source.",
		},
		[]string{"source"},
	)
	c.bytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downloaded_bytes_total",
		Help:      "Total bytes written for downloaded documents.",
	})
	c.documentSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "document_size_bytes",
		Help:      "Size of downloaded documents.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 8),
	})
	c.recordDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_duration_seconds",
			Help:      "Wall time spent on one record, by final status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	c.registry.MustRegister(
		c.adapterCalls,
		c.fetchAttempts,
		c.recordsTotal,
		c.downloadsBy,
		c.bytesTotal,
		c.documentSize,
		c.recordDuration,
	)
	return c
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// AdapterCall counts one adapter invocation.
func (c *Collector) AdapterCall(source types.Source, found bool) {
	if c == nil {
		return
	}
	result := "miss"
	if found {
		result = "hit"
	}
	c.adapterCalls.WithLabelValues(string(source), result).Inc()
}

// Fetch attempt results.
const (
	AttemptOK        = "ok"
	AttemptTransient = "transient"
	AttemptInvalid   = "invalid"
)

// FetchAttempt counts one download attempt.
func (c *Collector) FetchAttempt(result string) {
	if c == nil {
		return
	}
	c.fetchAttempts.WithLabelValues(result).Inc()
}

// Outcome records the final state of one record.
func (c *Collector) Outcome(o types.RetrievalOutcome) {
	if c == nil {
		return
	}
	c.recordsTotal.WithLabelValues(string(o.Status)).Inc()
	c.recordDuration.WithLabelValues(string(o.Status)).Observe(o.Duration.Seconds())
	if o.Status == types.StatusDownloaded {
		c.downloadsBy.WithLabelValues(string(o.SourceUsed)).Inc()
		c.bytesTotal.Add(float64(o.BytesWritten))
		c.documentSize.Observe(float64(o.BytesWritten))
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
