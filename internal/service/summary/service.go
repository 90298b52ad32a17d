package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/tradeintel/internal/aggregate"
	"github.com/ignite/tradeintel/internal/domain"
	"github.com/ignite/tradeintel/internal/metrics"
	"github.com/ignite/tradeintel/internal/pkg/logger"
	"github.com/ignite/tradeintel/internal/pkg/validate"
)

const defaultConcurrency = 10

// Config holds the service settings.
type Config struct {
	Concurrency int
}

// Service generates and stores summaries. It is safe for concurrent use.
type Service struct {
	records     RecordReader
	repo        Repository
	agg         *aggregate.Aggregator
	notifier    Notifier
	metrics     *metrics.Pipeline
	concurrency int
}

// NewService creates a summary service.
func NewService(records RecordReader, repo Repository, agg *aggregate.Aggregator, cfg Config) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Service{
		records:     records,
		repo:        repo,
		agg:         agg,
		concurrency: cfg.Concurrency,
	}
}

// SetNotifier registers the batch notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetMetrics attaches outcome counters.
func (s *Service) SetMetrics(m *metrics.Pipeline) { s.metrics = m }

// Publish stores sum, replacing any previous summary of the same entity.
func (s *Service) Publish(ctx context.Context, sum *domain.Summary) error {
	if sum == nil || strings.TrimSpace(sum.EntityName) == "" {
		return &validate.Error{Fields: []validate.FieldError{{Field: "entity_name", Tag: "required", Message: "entity_name is required"}}}
	}
	if err := s.repo.Upsert(ctx, sum); err != nil {
		return fmt.Errorf("publish summary %q: %w", sum.EntityName, err)
	}
	return nil
}

// SummarizeAndPublish aggregates the stored records of entity within
// [start, end] and publishes the result. It returns nil, nil when the entity
// has no records in range.
func (s *Service) SummarizeAndPublish(ctx context.Context, entity, start, end string) (*domain.Summary, error) {
	entity = strings.TrimSpace(entity)
	if err := validate.Struct(summarizeInput{Entity: entity, StartDate: start, EndDate: end}); err != nil {
		return nil, err
	}
	if start != "" && end != "" {
		if err := validate.DateRange(start, end); err != nil {
			return nil, err
		}
	}
	return s.summarize(ctx, entity, start, end)
}

func (s *Service) summarize(ctx context.Context, entity, start, end string) (*domain.Summary, error) {
	records, err := s.records.FindByEntity(ctx, entity, start, end)
	if err != nil {
		return nil, fmt.Errorf("load records for %q: %w", entity, err)
	}
	sum := s.agg.Summarize(entity, records)
	if sum == nil {
		s.metrics.SummaryOutcome(metrics.SummarySkipped)
		return nil, nil
	}
	sum.PeriodStart, sum.PeriodEnd = start, end
	if err := s.Publish(ctx, sum); err != nil {
		s.metrics.SummaryOutcome(metrics.SummaryFailed)
		return nil, err
	}
	s.metrics.SummaryOutcome(metrics.SummaryCreated)
	return sum, nil
}

type summarizeInput struct {
	Entity    string `json:"importer_name" validate:"notblank,max=500"`
	StartDate string `json:"start_date" validate:"omitempty,isodate"`
	EndDate   string `json:"end_date" validate:"omitempty,isodate"`
}

// BatchRequest selects the entities to regenerate. An empty Entities list
// means every entity in the record store.
type BatchRequest struct {
	Entities      []string `json:"entities"`
	StartDate     string   `json:"start_date" validate:"omitempty,isodate"`
	EndDate       string   `json:"end_date" validate:"omitempty,isodate"`
	ClearExisting bool     `json:"clear_existing"`
}

// Failure is one entity that could not be summarized.
type Failure struct {
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

// BatchResult reports a PublishAll run.
type BatchResult struct {
	EntitiesProcessed int              `json:"entities_processed"`
	SummariesCreated  int              `json:"summaries_created"`
	Skipped           int              `json:"skipped"`
	Cleared           int64            `json:"cleared"`
	Failures          []Failure        `json:"failures,omitempty"`
	Summaries         []domain.Summary `json:"-"`
	Duration          time.Duration    `json:"-"`
}

// PublishAll regenerates the summaries of many entities with bounded
// concurrency. A failing entity is recorded in the result and does not stop
// the others.
func (s *Service) PublishAll(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	began := time.Now()
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.StartDate != "" && req.EndDate != "" {
		if err := validate.DateRange(req.StartDate, req.EndDate); err != nil {
			return nil, err
		}
	}

	entities := uniqueNames(req.Entities)
	if len(entities) == 0 {
		all, err := s.records.ListEntities(ctx)
		if err != nil {
			return nil, fmt.Errorf("list entities: %w", err)
		}
		entities = all
	}
	if len(entities) == 0 {
		return nil, ErrNoRecords
	}

	res := &BatchResult{}
	if req.ClearExisting {
		n, err := s.repo.DeleteAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("clear summaries: %w", err)
		}
		res.Cleared = n
		logger.Info("summaries cleared", "count", n)
	}

	created := make([]*domain.Summary, len(entities))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, entity := range entities {
		g.Go(func() error {
			var sum *domain.Summary
			err := ctx.Err()
			if err == nil {
				sum, err = s.summarize(ctx, entity, req.StartDate, req.EndDate)
			}

			mu.Lock()
			defer mu.Unlock()
			res.EntitiesProcessed++
			switch {
			case err != nil:
				logger.Warn("summary failed", "entity", entity, "error", err)
				res.Failures = append(res.Failures, Failure{Entity: entity, Error: err.Error()})
			case sum == nil:
				res.Skipped++
			default:
				res.SummariesCreated++
				created[i] = sum
			}
			return nil
		})
	}
	g.Wait()

	for _, sum := range created {
		if sum != nil {
			res.Summaries = append(res.Summaries, *sum)
		}
	}
	res.Duration = time.Since(began)

	logger.Info("summary batch complete",
		"processed", res.EntitiesProcessed,
		"created", res.SummariesCreated,
		"skipped", res.Skipped,
		"failed", len(res.Failures),
		"duration_ms", res.Duration.Milliseconds())

	if len(res.Summaries) > 0 && s.notifier != nil {
		if err := s.notifier.SummariesPublished(ctx, res.Summaries); err != nil {
			logger.Warn("summary notification failed", "error", err)
		}
	}
	return res, nil
}

// ListEntities returns every importer present in the record store.
func (s *Service) ListEntities(ctx context.Context) ([]string, error) {
	return s.records.ListEntities(ctx)
}

// Status reports record and summary counts and the last record insert time.
func (s *Service) Status(ctx context.Context) (*domain.Status, error) {
	records, err := s.records.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	summaries, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count summaries: %w", err)
	}
	last, err := s.records.LastUpdated(ctx)
	if err != nil {
		return nil, fmt.Errorf("last updated: %w", err)
	}
	return &domain.Status{RecordCount: records, SummaryCount: summaries, LastUpdated: last}, nil
}

// Get returns the stored summary of entity.
func (s *Service) Get(ctx context.Context, entity string) (*domain.Summary, error) {
	sum, err := s.repo.Get(ctx, strings.TrimSpace(entity))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return sum, nil
}

// List returns every stored summary.
func (s *Service) List(ctx context.Context) ([]domain.Summary, error) {
	return s.repo.List(ctx)
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
