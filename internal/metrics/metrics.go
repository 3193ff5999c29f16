// Package metrics exposes the daemon's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RefreshTotal counts store refresh attempts by backend and status.
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swingboard",
		Name:      "store_refresh_total",
		Help:      "Number of record store refreshes by backend and status",
	}, []string{"backend", "status"})

	// SnapshotSize tracks the record count of the current snapshot.
	SnapshotSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "swingboard",
		Name:      "snapshot_records",
		Help:      "Number of event records in the current snapshot",
	})

	// ScrapeTotal counts candidate page scrapes by status.
	ScrapeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swingboard",
		Name:      "scrape_total",
		Help:      "Number of candidate page scrapes by status",
	}, []string{"status"})

	// ReviewTotal counts matcher review runs by resulting confidence bucket.
	ReviewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swingboard",
		Name:      "review_total",
		Help:      "Number of candidate reviews by confidence bucket",
	}, []string{"bucket"})
)

func init() {
	prometheus.MustRegister(RefreshTotal, SnapshotSize, ScrapeTotal, ReviewTotal)
}
