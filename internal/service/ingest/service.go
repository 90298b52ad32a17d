package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/tradeintel/internal/domain"
	"github.com/ignite/tradeintel/internal/logcomex"
	"github.com/ignite/tradeintel/internal/metrics"
	"github.com/ignite/tradeintel/internal/pkg/distlock"
	"github.com/ignite/tradeintel/internal/pkg/logger"
	"github.com/ignite/tradeintel/internal/pkg/validate"
)

// Request describes one ingest run.
type Request struct {
	EntityName string            `json:"importer_name" validate:"notblank,min=3,max=500"`
	StartDate  string            `json:"start_date" validate:"required,isodate"`
	EndDate    string            `json:"end_date" validate:"required,isodate"`
	ClearScope domain.ClearScope `json:"clear_scope" validate:"omitempty,oneof=none entity all"`
}

// Result reports what a run did. FetchErr is set when the upstream failed
// part way; the records fetched before the failure are still stored.
type Result struct {
	RunID      string          `json:"run_id"`
	EntityName string          `json:"importer_name"`
	Fetched    int             `json:"records_fetched"`
	Inserted   int             `json:"records_inserted"`
	Dropped    int             `json:"records_dropped"`
	Cleared    int             `json:"records_cleared"`
	FetchErr   error           `json:"-"`
	Duration   time.Duration   `json:"-"`
	Summary    *domain.Summary `json:"summary,omitempty"`
}

// Message is a one-line human readable outcome.
func (r *Result) Message() string {
	var b strings.Builder
	switch {
	case r.Fetched == 0 && r.FetchErr != nil:
		fmt.Fprintf(&b, "Fetch failed for %s; existing records kept", r.EntityName)
	case r.Fetched == 0:
		fmt.Fprintf(&b, "No records found for %s", r.EntityName)
	default:
		fmt.Fprintf(&b, "Imported %d of %d records for %s", r.Inserted, r.Fetched, r.EntityName)
	}
	if r.Dropped > 0 {
		fmt.Fprintf(&b, " (%d dropped)", r.Dropped)
	}
	if r.Fetched > 0 && r.FetchErr != nil {
		b.WriteString(" (partial: upstream stopped early)")
	}
	return b.String()
}

// Service coordinates fetch and storage. It is safe for concurrent use.
type Service struct {
	fetcher    Fetcher
	repo       Repository
	locks      distlock.Factory
	summarizer Summarizer
	metrics    *metrics.Pipeline
}

// NewService creates an ingest service.
func NewService(fetcher Fetcher, repo Repository) *Service {
	return &Service{fetcher: fetcher, repo: repo}
}

// SetLocks enables the per-entity lock. A nil factory disables it.
func (s *Service) SetLocks(f distlock.Factory) { s.locks = f }

// SetSummarizer enables IngestAndSummarize.
func (s *Service) SetSummarizer(sum Summarizer) { s.summarizer = sum }

// SetMetrics attaches run counters.
func (s *Service) SetMetrics(m *metrics.Pipeline) { s.metrics = m }

// Validate normalizes req and checks it without touching any collaborator.
func Validate(req *Request) error {
	req.EntityName = strings.TrimSpace(req.EntityName)
	if err := validate.Struct(req); err != nil {
		return err
	}
	return validate.DateRange(req.StartDate, req.EndDate)
}

// Ingest runs one fetch-and-store cycle for req.EntityName.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(&req); err != nil {
		s.metrics.IngestRun(metrics.IngestInvalid, 0, 0)
		return nil, err
	}

	if s.locks == nil {
		return s.run(ctx, req)
	}

	lock := s.locks("ingest:" + req.EntityName)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !ok {
		s.metrics.IngestRun(metrics.IngestBusy, 0, 0)
		return nil, ErrEntityBusy
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release ingest lock failed", "entity", req.EntityName, "error", err)
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if ext, ok := lock.(distlock.Extender); ok {
		stop := keepAlive(runCtx, ext, func() { cancel(ErrLockLost) })
		defer stop()
	}

	res, err := s.run(runCtx, req)
	if err != nil && errors.Is(context.Cause(runCtx), ErrLockLost) {
		return res, fmt.Errorf("%w: %w", ErrLockLost, err)
	}
	return res, err
}

// keepAlive extends lock every third of its TTL until stop is called. When
// the lock turns out to be owned by someone else, lost is called once and
// the loop ends.
func keepAlive(ctx context.Context, lock distlock.Extender, lost func()) (stop func()) {
	ttl := lock.TTL()
	if ttl <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := lock.Extend(ctx, ttl)
			switch {
			case err == nil, ctx.Err() != nil:
			case errors.Is(err, distlock.ErrNotOwner):
				logger.Error("ingest lock lost", "key", lock.Key())
				lost()
				return
			default:
				logger.Warn("extend ingest lock failed", "key", lock.Key(), "error", err)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Service) run(ctx context.Context, req Request) (*Result, error) {
	began := time.Now()
	res := &Result{RunID: uuid.NewString(), EntityName: req.EntityName}
	scope := req.ClearScope.OrDefault()

	logger.Info("ingest started",
		"run_id", res.RunID,
		"entity", req.EntityName,
		"start", req.StartDate,
		"end", req.EndDate,
		"clear_scope", string(scope))

	raw, fetchErr := s.fetcher.FetchRecords(ctx, req.EntityName, req.StartDate, req.EndDate)
	res.Fetched = len(raw)
	res.FetchErr = fetchErr

	if fetchErr != nil && len(raw) == 0 {
		res.Duration = time.Since(began)
		s.metrics.IngestRun(metrics.IngestFailed, 0, 0)
		logger.Error("ingest fetch failed", "run_id", res.RunID, "entity", req.EntityName, "error", fetchErr)
		return res, fmt.Errorf("fetch %q: %w", req.EntityName, fetchErr)
	}

	records := make([]domain.ImportRecord, 0, len(raw))
	for i, r := range raw {
		rec, err := logcomex.ParseRecord(r)
		if err != nil {
			res.Dropped++
			logger.Debug("record dropped", "run_id", res.RunID, "index", i, "error", err)
			continue
		}
		records = append(records, rec)
	}

	cleared, inserted, err := s.repo.Replace(ctx, scope, req.EntityName, records)
	if err != nil {
		res.Duration = time.Since(began)
		s.metrics.IngestRun(metrics.IngestFailed, 0, res.Dropped)
		return res, fmt.Errorf("store records for %q: %w", req.EntityName, err)
	}
	res.Cleared = cleared
	res.Inserted = inserted
	res.Duration = time.Since(began)

	outcome := metrics.IngestOK
	if fetchErr != nil {
		outcome = metrics.IngestPartial
		logger.Warn("ingest partial", "run_id", res.RunID, "entity", req.EntityName, "fetched", res.Fetched, "error", fetchErr)
	}
	s.metrics.IngestRun(outcome, res.Inserted, res.Dropped)

	logger.Info("ingest complete",
		"run_id", res.RunID,
		"entity", req.EntityName,
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"dropped", res.Dropped,
		"cleared", res.Cleared,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// IngestAndSummarize ingests req and then publishes the entity's summary
// over the same period. The summary step runs only after the records are
// stored. A summary failure is returned alongside the ingest result.
func (s *Service) IngestAndSummarize(ctx context.Context, req Request) (*Result, error) {
	if s.summarizer == nil {
		return nil, fmt.Errorf("ingest: no summarizer configured")
	}
	res, err := s.Ingest(ctx, req)
	if err != nil {
		return res, err
	}
	sum, err := s.summarizer.SummarizeAndPublish(ctx, res.EntityName, req.StartDate, req.EndDate)
	if err != nil {
		return res, fmt.Errorf("%w: %q: %w", ErrSummaryFailed, res.EntityName, err)
	}
	res.Summary = sum
	return res, nil
}
