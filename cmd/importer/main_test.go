package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/tradeintel/internal/service/ingest"
	"github.com/ignite/tradeintel/internal/service/summary"
)

func TestDateRange(t *testing.T) {
	now := time.Date(2024, 8, 31, 15, 0, 0, 0, time.UTC)

	from, to := dateRange(now, 6, "", "")
	assert.Equal(t, "2024-03-02", from) // Feb 31 normalizes forward
	assert.Equal(t, "2024-08-31", to)

	from, to = dateRange(now, 6, "2024-01-01", "2024-06-30")
	assert.Equal(t, "2024-01-01", from)
	assert.Equal(t, "2024-06-30", to)

	from, to = dateRange(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), 1, "", "")
	assert.Equal(t, "2024-06-15", from)
	assert.Equal(t, "2024-07-15", to)
}

type fakeImporter struct {
	summarized bool
	res        *ingest.Result
	err        error
}

func (f *fakeImporter) Ingest(context.Context, ingest.Request) (*ingest.Result, error) {
	return f.res, f.err
}

func (f *fakeImporter) IngestAndSummarize(ctx context.Context, req ingest.Request) (*ingest.Result, error) {
	f.summarized = true
	return f.Ingest(ctx, req)
}

func TestRunImport(t *testing.T) {
	svc := &fakeImporter{res: &ingest.Result{EntityName: "ACME", Fetched: 3, Inserted: 3}}
	req := ingest.Request{EntityName: "ACME", StartDate: "2024-01-01", EndDate: "2024-06-30"}

	require.NoError(t, runImport(context.Background(), svc, req, false))
	assert.False(t, svc.summarized)

	require.NoError(t, runImport(context.Background(), svc, req, true))
	assert.True(t, svc.summarized)

	svc.err = ingest.ErrEntityBusy
	assert.ErrorIs(t, runImport(context.Background(), svc, req, false), ingest.ErrEntityBusy)
}

type fakePublisher struct {
	res *summary.BatchResult
	err error
}

func (f fakePublisher) PublishAll(context.Context, summary.BatchRequest) (*summary.BatchResult, error) {
	return f.res, f.err
}

func TestRunAllSummaries(t *testing.T) {
	assert.NoError(t, runAllSummaries(context.Background(), fakePublisher{err: summary.ErrNoRecords}))
	assert.Error(t, runAllSummaries(context.Background(), fakePublisher{err: errors.New("db down")}))

	ok := &summary.BatchResult{EntitiesProcessed: 2, SummariesCreated: 2}
	assert.NoError(t, runAllSummaries(context.Background(), fakePublisher{res: ok}))

	failed := &summary.BatchResult{EntitiesProcessed: 2, SummariesCreated: 1,
		Failures: []summary.Failure{{Entity: "GLOBEX", Error: "timeout"}}}
	assert.Error(t, runAllSummaries(context.Background(), fakePublisher{res: failed}))
}
