package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/tradeintel/internal/domain"
	"github.com/ignite/tradeintel/internal/pkg/httpretry"
)

func TestWebhook_Delivers(t *testing.T) {
	var got Payload
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	wh := NewWebhook([]string{srv.URL}, time.Second, 1)
	wh.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }

	err := wh.SummariesPublished(context.Background(), []domain.Summary{{EntityName: "ACME", OpportunityScore: 4}})
	require.NoError(t, err)

	assert.Equal(t, "Logcomex-Importer/1.0", headers.Get("User-Agent"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.NotEmpty(t, headers.Get("X-Delivery-ID"))
	assert.Equal(t, "logcomex_importer", got.Source)
	assert.Equal(t, "summary_created", got.Trigger)
	assert.Equal(t, 1, got.SummaryCount)
	assert.Equal(t, "ACME", got.Data[0].EntityName)
	assert.True(t, got.Timestamp.Equal(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)))
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook([]string{srv.URL}, time.Second, 2)
	wh.SetHTTPClient(httpretry.NewRetryClient(srv.Client(), 2, httpretry.WithBackoff(time.Millisecond, 5*time.Millisecond)))

	require.NoError(t, wh.SummariesPublished(context.Background(), []domain.Summary{{EntityName: "ACME"}}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWebhook_AttemptsEveryURL(t *testing.T) {
	var okCalls int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&okCalls, 1)
	}))
	defer good.Close()

	wh := NewWebhook([]string{bad.URL, good.URL}, time.Second, 1)
	err := wh.SummariesPublished(context.Background(), []domain.Summary{{EntityName: "ACME"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&okCalls))
}

func TestWebhook_NoopWithoutURLsOrSummaries(t *testing.T) {
	assert.NoError(t, NewWebhook(nil, time.Second, 1).SummariesPublished(context.Background(), []domain.Summary{{EntityName: "ACME"}}))
	assert.NoError(t, NewWebhook([]string{"http://127.0.0.1:1"}, time.Second, 1).SummariesPublished(context.Background(), nil))
}
