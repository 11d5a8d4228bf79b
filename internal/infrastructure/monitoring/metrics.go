// Package monitoring exposes Prometheus metrics for the virtual filesystem.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all engine metrics. A nil *Metrics is valid and records
// nothing, so wiring metrics is optional.
type Metrics struct {
	// Operation metrics
	OpsTotal    *prometheus.CounterVec
	OpErrors    *prometheus.CounterVec
	BytesStored prometheus.Counter

	// Quota metrics
	EvictionsTotal prometheus.Counter
	EvictedBytes   prometheus.Counter

	// Lifecycle metrics
	MigrationsTotal prometheus.Counter
	TombstonePurges prometheus.Counter
}

// New creates a metrics collector registered against reg. A nil reg
// registers against the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		OpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfs_operations_total",
				Help: "Total virtual filesystem operations",
			},
			[]string{"op"},
		),
		OpErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfs_operation_errors_total",
				Help: "Total failed virtual filesystem operations",
			},
			[]string{"op"},
		),
		BytesStored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vfs_bytes_written_total",
				Help: "Total bytes written through the chunk store",
			},
		),
		EvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vfs_evictions_total",
				Help: "Total files evicted by quota cleanup",
			},
		),
		EvictedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vfs_evicted_bytes_total",
				Help: "Total bytes freed by quota cleanup",
			},
		),
		MigrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vfs_migrations_total",
				Help: "Total legacy-format migrations performed",
			},
		),
		TombstonePurges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vfs_tombstone_purges_total",
				Help: "Total tombstones purged after TTL expiry",
			},
		),
	}

	reg.MustRegister(
		m.OpsTotal, m.OpErrors, m.BytesStored,
		m.EvictionsTotal, m.EvictedBytes,
		m.MigrationsTotal, m.TombstonePurges,
	)
	return m
}

// RecordOp counts one operation, and its failure when err is non-nil.
func (m *Metrics) RecordOp(op string, err error) {
	if m == nil {
		return
	}
	m.OpsTotal.WithLabelValues(op).Inc()
	if err != nil {
		m.OpErrors.WithLabelValues(op).Inc()
	}
}

// RecordWrite counts bytes written through the chunk store.
func (m *Metrics) RecordWrite(n int) {
	if m == nil {
		return
	}
	m.BytesStored.Add(float64(n))
}

// RecordEviction counts one evicted file and the bytes it freed.
func (m *Metrics) RecordEviction(freed int64) {
	if m == nil {
		return
	}
	m.EvictionsTotal.Inc()
	m.EvictedBytes.Add(float64(freed))
}

// RecordMigration counts one completed legacy migration.
func (m *Metrics) RecordMigration() {
	if m == nil {
		return
	}
	m.MigrationsTotal.Inc()
}

// RecordTombstonePurge counts purged tombstones.
func (m *Metrics) RecordTombstonePurge(n int) {
	if m == nil {
		return
	}
	m.TombstonePurges.Add(float64(n))
}
