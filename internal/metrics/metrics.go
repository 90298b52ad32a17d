// Package metrics exposes Prometheus counters for the ingest and summary
// pipeline. A nil *Pipeline is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradeintel"

// Ingest outcomes.
const (
	IngestOK      = "ok"
	IngestPartial = "partial"
	IngestFailed  = "failed"
	IngestInvalid = "invalid"
	IngestBusy    = "busy"
)

// Summary outcomes.
const (
	SummaryCreated = "created"
	SummarySkipped = "skipped"
	SummaryFailed  = "failed"
)

// Pipeline groups every collector of the service.
type Pipeline struct {
	pages             *prometheus.CounterVec
	pageLatency       prometheus.Histogram
	recordsFetched    prometheus.Counter
	ingestRuns        *prometheus.CounterVec
	recordsInserted   prometheus.Counter
	recordsDropped    prometheus.Counter
	summaries         *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	archiveFailures   prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logcomex",
			Name:      "pages_total",
			Help:      "Upstream page requests by outcome.",
		}, []string{"outcome"}),
		pageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "logcomex",
			Name:      "page_duration_seconds",
			Help:      "Latency of upstream page requests.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		recordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logcomex",
			Name:      "records_fetched_total",
			Help:      "Raw records returned by the upstream API.",
		}),
		ingestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Ingest runs by outcome.",
		}, []string{"outcome"}),
		recordsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_inserted_total",
			Help:      "Declarations written to the record store.",
		}),
		recordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_dropped_total",
			Help:      "Declarations dropped because a field could not be coerced.",
		}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "entities_total",
			Help:      "Summary generation per importer by outcome.",
		}, []string{"outcome"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by outcome.",
		}, []string{"outcome"}),
		archiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "failures_total",
			Help:      "Raw pages that could not be archived.",
		}),
	}
	reg.MustRegister(
		p.pages, p.pageLatency, p.recordsFetched,
		p.ingestRuns, p.recordsInserted, p.recordsDropped,
		p.summaries, p.webhookDeliveries, p.archiveFailures,
	)
	return p
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObservePage records one upstream page request.
func (p *Pipeline) ObservePage(ok bool, d time.Duration, records int) {
	if p == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	p.pages.WithLabelValues(outcome).Inc()
	p.pageLatency.Observe(d.Seconds())
	p.recordsFetched.Add(float64(records))
}

// IngestRun records the outcome of one ingest and its write counts.
func (p *Pipeline) IngestRun(outcome string, inserted, dropped int) {
	if p == nil {
		return
	}
	p.ingestRuns.WithLabelValues(outcome).Inc()
	p.recordsInserted.Add(float64(inserted))
	p.recordsDropped.Add(float64(dropped))
}

// SummaryOutcome records one importer's summary result.
func (p *Pipeline) SummaryOutcome(outcome string) {
	if p == nil {
		return
	}
	p.summaries.WithLabelValues(outcome).Inc()
}

// WebhookDelivery records one webhook POST.
func (p *Pipeline) WebhookDelivery(ok bool) {
	if p == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	p.webhookDeliveries.WithLabelValues(outcome).Inc()
}

// ArchiveFailure records a page that could not be archived.
func (p *Pipeline) ArchiveFailure() {
	if p == nil {
		return
	}
	p.archiveFailures.Inc()
}
