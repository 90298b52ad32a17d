package ingest

import (
	"context"
	"encoding/json"

	"github.com/ignite/tradeintel/internal/domain"
)

// Repository is the write side of the record store.
type Repository interface {
	// Replace removes the records selected by scope (all records, the
	// entity's records or none) and inserts records, atomically. It returns
	// the number of rows removed and inserted.
	Replace(ctx context.Context, scope domain.ClearScope, entity string, records []domain.ImportRecord) (cleared, inserted int, err error)
}

// Fetcher retrieves raw declarations. On failure it returns what it fetched
// before the error together with the error.
type Fetcher interface {
	FetchRecords(ctx context.Context, entity, start, end string) ([]json.RawMessage, error)
}

// Summarizer publishes a summary once an ingest has been stored.
type Summarizer interface {
	SummarizeAndPublish(ctx context.Context, entity, start, end string) (*domain.Summary, error)
}
