package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the subsystem's Prometheus collectors.
type Registry struct {
	reg *prometheus.Registry

	OrdersMigrated prometheus.Counter
	OrdersSkipped  prometheus.Counter
	OrdersFailed   prometheus.Counter
	SyncRuns       prometheus.Counter
	SyncDuration   prometheus.Histogram
	LastSyncUnix   prometheus.Gauge

	CatalogCreates prometheus.Counter
	CatalogUpdates prometheus.Counter
	CatalogDeletes prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	migrated := prometheus.NewCounter(prometheus.CounterOpts{Name: "storesync_orders_migrated_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "storesync_orders_skipped_total"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "storesync_orders_failed_total"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "storesync_sync_runs_total"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storesync_sync_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	lastSync := prometheus.NewGauge(prometheus.GaugeOpts{Name: "storesync_last_sync_timestamp_seconds"})

	creates := prometheus.NewCounter(prometheus.CounterOpts{Name: "storesync_catalog_creates_total"})
	updates := prometheus.NewCounter(prometheus.CounterOpts{Name: "storesync_catalog_updates_total"})
	deletes := prometheus.NewCounter(prometheus.CounterOpts{Name: "storesync_catalog_deletes_total"})

	r.MustRegister(migrated, skipped, failed, runs, duration, lastSync, creates, updates, deletes)
	return &Registry{
		reg:            r,
		OrdersMigrated: migrated,
		OrdersSkipped:  skipped,
		OrdersFailed:   failed,
		SyncRuns:       runs,
		SyncDuration:   duration,
		LastSyncUnix:   lastSync,
		CatalogCreates: creates,
		CatalogUpdates: updates,
		CatalogDeletes: deletes,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
