package summary

import (
	"context"
	"time"

	"github.com/ignite/tradeintel/internal/domain"
)

// RecordReader is the read side of the record store.
type RecordReader interface {
	// FindByEntity returns the entity's records ordered by dispatch date.
	// Empty start or end leaves that side of the range open.
	FindByEntity(ctx context.Context, entity, start, end string) ([]domain.ImportRecord, error)

	// ListEntities returns every distinct importer name, sorted.
	ListEntities(ctx context.Context) ([]string, error)

	Count(ctx context.Context) (int, error)

	// LastUpdated is the newest record insert time, nil when empty.
	LastUpdated(ctx context.Context) (*time.Time, error)
}

// Repository is the summary store. Summaries are unique per entity name.
type Repository interface {
	// Upsert inserts s or replaces the existing summary for s.EntityName.
	// ID, CreatedAt and UpdatedAt are filled from the stored row.
	Upsert(ctx context.Context, s *domain.Summary) error

	// DeleteAll removes every summary and returns how many were removed.
	DeleteAll(ctx context.Context) (int64, error)

	Count(ctx context.Context) (int, error)

	// Get returns ErrNotFound when the entity has no summary.
	Get(ctx context.Context, entity string) (*domain.Summary, error)

	// List returns all summaries, highest opportunity score first.
	List(ctx context.Context) ([]domain.Summary, error)
}

// Notifier is told about every batch that created at least one summary.
type Notifier interface {
	SummariesPublished(ctx context.Context, summaries []domain.Summary) error
}
