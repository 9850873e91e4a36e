package observability

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Prometheus implements every hook interface with Prometheus metrics.
type Prometheus struct {
	registry *prometheus.Registry

	Commits         prometheus.Counter
	Applied         *prometheus.CounterVec
	AppliedRecords  *prometheus.CounterVec
	CodecOps        *prometheus.CounterVec
	CodecDuration   *prometheus.HistogramVec
	CodecBytes      *prometheus.HistogramVec
	FindCandidates  prometheus.Histogram
	StoreOperations *prometheus.CounterVec
}

// NewPrometheus creates the collector and registers its metrics with a fresh
// registry. namespace prefixes every metric name.
func NewPrometheus(namespace string) (*Prometheus, error) {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_commits_total",
			Help:      "Total number of committed history transactions",
		}),
		Applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_applied_total",
			Help:      "Total number of undo and redo steps",
		}, []string{"direction"}),
		AppliedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_applied_records_total",
			Help:      "Total number of records replayed by undo and redo",
		}, []string{"direction"}),
		CodecOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codec_operations_total",
			Help:      "Total number of encode and decode operations",
		}, []string{"operation", "kind", "status"}),
		CodecDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "codec_duration_seconds",
			Help:      "Encode and decode duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		CodecBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "codec_envelope_bytes",
			Help:      "Size of encoded or decoded envelopes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"operation"}),
		FindCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "codec_find_candidates",
			Help:      "Number of candidate runs tried per find",
			Buckets:   prometheus.LinearBuckets(0, 4, 9),
		}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of library store operations",
		}, []string{"backend", "result"}),
	}

	collectors := []prometheus.Collector{
		p.Commits, p.Applied, p.AppliedRecords,
		p.CodecOps, p.CodecDuration, p.CodecBytes, p.FindCandidates,
		p.StoreOperations,
	}
	for _, c := range collectors {
		if err := p.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Install registers p as the global history, codec and store hooks.
func (p *Prometheus) Install() {
	SetHistoryHooks(p)
	SetCodecHooks(p)
	SetStoreHooks(p)
}

// Registry returns the registry holding p's metrics.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// WriteText writes all metrics in the Prometheus text exposition format.
func (p *Prometheus) WriteText(w io.Writer) error {
	families, err := p.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prometheus) OnCommit(string, int) { p.Commits.Inc() }

func (p *Prometheus) OnApplied(direction, _ string, records int) {
	p.Applied.WithLabelValues(direction).Inc()
	p.AppliedRecords.WithLabelValues(direction).Add(float64(records))
}

func (p *Prometheus) OnEncode(_ context.Context, kind, _ string, size int, d time.Duration, err error) {
	p.codec("encode", kind, size, d, err)
}

func (p *Prometheus) OnDecode(_ context.Context, kind string, size int, d time.Duration, err error) {
	p.codec("decode", kind, size, d, err)
}

func (p *Prometheus) codec(op, kind string, size int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	if kind == "" {
		kind = "unknown"
	}
	p.CodecOps.WithLabelValues(op, kind, status).Inc()
	p.CodecDuration.WithLabelValues(op).Observe(d.Seconds())
	if err == nil {
		p.CodecBytes.WithLabelValues(op).Observe(float64(size))
	}
}

func (p *Prometheus) OnFind(_ context.Context, candidates int, _ bool) {
	p.FindCandidates.Observe(float64(candidates))
}

func (p *Prometheus) OnStoreHit(_ context.Context, backend string) {
	p.StoreOperations.WithLabelValues(backend, "hit").Inc()
}

func (p *Prometheus) OnStoreMiss(_ context.Context, backend string) {
	p.StoreOperations.WithLabelValues(backend, "miss").Inc()
}

func (p *Prometheus) OnStoreSet(_ context.Context, backend string, _ int) {
	p.StoreOperations.WithLabelValues(backend, "set").Inc()
}
