package watch

import (
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	promRegistry = prom.NewRegistry()

	buildsTotal = prom.NewCounter(prom.CounterOpts{
		Namespace: "bookforge", Name: "builds_total",
		Help: "Total rebuilds triggered in watch mode"})
	buildsFailedTotal = prom.NewCounter(prom.CounterOpts{
		Namespace: "bookforge", Name: "builds_failed_total",
		Help: "Rebuilds that finished with document failures"})
	buildsSkippedTotal = prom.NewCounter(prom.CounterOpts{
		Namespace: "bookforge", Name: "builds_skipped_total",
		Help: "Rebuilds skipped because no document changed"})
	documentsBuilt = prom.NewCounter(prom.CounterOpts{
		Namespace: "bookforge", Name: "documents_built_total",
		Help: "Documents compiled across all rebuilds"})
	buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "bookforge", Name: "build_duration_seconds",
		Help:    "Wall time of each rebuild",
		Buckets: prom.ExponentialBuckets(0.1, 2, 12)})
)

var registerMetricsOnce sync.Once

func metricsHandler() http.Handler {
	registerMetricsOnce.Do(func() {
		promRegistry.MustRegister(buildsTotal, buildsFailedTotal, buildsSkippedTotal, documentsBuilt, buildDuration)
		promRegistry.MustRegister(promcollect.NewGoCollector(),
			promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	})
	return promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})
}
