// Package metrics declares the Prometheus collectors shared by the build
// pipeline and exposes the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BuildsTotal counts pipeline runs by result ("ok" or "failed").
	BuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assetgrid_builds_total",
		Help: "Total pipeline builds by result",
	}, []string{"result"})

	// BuildDuration tracks wall-clock build time.
	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assetgrid_build_duration_seconds",
		Help:    "Pipeline build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	})

	// FilesCompiled counts files passed through each plugin.
	FilesCompiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assetgrid_files_compiled_total",
		Help: "Files processed by plugin and operation",
	}, []string{"plugin", "operation"})

	// CopyRetries counts copy retries by error class ("transient" or "busy").
	CopyRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assetgrid_copy_retries_total",
		Help: "File copy retries by error class",
	}, []string{"class"})

	// CacheLookups counts source cache lookups by outcome ("hit" or "miss").
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assetgrid_cache_lookups_total",
		Help: "Source cache lookups by outcome",
	}, []string{"outcome"})

	// ReloadClients reports connected live-reload clients.
	ReloadClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assetgrid_reload_clients",
		Help: "Connected live-reload clients",
	})
)

// Handler returns the scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
