package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipeline_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)

	p.ObservePage(true, 200*time.Millisecond, 100)
	p.ObservePage(false, time.Second, 0)
	p.IngestRun(IngestPartial, 100, 2)
	p.SummaryOutcome(SummaryCreated)
	p.SummaryOutcome(SummaryCreated)
	p.WebhookDelivery(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.pages.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.pages.WithLabelValues("error")))
	assert.Equal(t, 100.0, testutil.ToFloat64(p.recordsFetched))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.recordsDropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.summaries.WithLabelValues(SummaryCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.webhookDeliveries.WithLabelValues("error")))
}

func TestPipeline_NilIsNoop(t *testing.T) {
	var p *Pipeline
	assert.NotPanics(t, func() {
		p.ObservePage(true, time.Second, 1)
		p.IngestRun(IngestOK, 1, 0)
		p.SummaryOutcome(SummaryFailed)
		p.WebhookDelivery(true)
		p.ArchiveFailure()
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)
	p.IngestRun(IngestOK, 5, 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tradeintel_ingest_records_inserted_total 5")
}
