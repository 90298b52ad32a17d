package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/tradeintel/internal/domain"
	"github.com/ignite/tradeintel/internal/export"
	"github.com/ignite/tradeintel/internal/logcomex"
	"github.com/ignite/tradeintel/internal/pkg/httputil"
	"github.com/ignite/tradeintel/internal/pkg/logger"
	"github.com/ignite/tradeintel/internal/pkg/validate"
	"github.com/ignite/tradeintel/internal/service/ingest"
	"github.com/ignite/tradeintel/internal/service/summary"
)

// IngestService runs imports.
type IngestService interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
	IngestAndSummarize(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// SummaryService generates and reads summaries.
type SummaryService interface {
	SummarizeAndPublish(ctx context.Context, entity, start, end string) (*domain.Summary, error)
	PublishAll(ctx context.Context, req summary.BatchRequest) (*summary.BatchResult, error)
	Get(ctx context.Context, entity string) (*domain.Summary, error)
	List(ctx context.Context) ([]domain.Summary, error)
	ListEntities(ctx context.Context) ([]string, error)
	Status(ctx context.Context) (*domain.Status, error)
}

// RecordExporter streams every stored record.
type RecordExporter interface {
	ExportAll(ctx context.Context, fn func(domain.ImportRecord) error) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	ingest    IngestService
	summaries SummaryService
	records   RecordExporter
}

// NewHandlers creates a new Handlers instance
func NewHandlers(ingestSvc IngestService, summarySvc SummaryService, records RecordExporter) *Handlers {
	return &Handlers{ingest: ingestSvc, summaries: summarySvc, records: records}
}

type importRequest struct {
	ingest.Request
	Summarize bool `json:"summarize"`
}

type importResponse struct {
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	Code            string          `json:"code,omitempty"`
	RunID           string          `json:"run_id"`
	RecordsFetched  int             `json:"records_fetched"`
	RecordsInserted int             `json:"records_inserted"`
	RecordsDropped  int             `json:"records_dropped"`
	Partial         bool            `json:"partial"`
	ExecutionTime   float64         `json:"execution_time"`
	Summary         *domain.Summary `json:"summary,omitempty"`
}

// HandleImport fetches and stores one importer's declarations.
//
//	POST /api/import
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	run := h.ingest.Ingest
	if req.Summarize {
		run = h.ingest.IngestAndSummarize
	}
	res, err := run(r.Context(), req.Request)
	if errors.Is(err, ingest.ErrSummaryFailed) && res != nil {
		// the records are committed; report them alongside the failure
		logger.Error("summary after import failed", "run_id", res.RunID, "error", err)
		body := newImportResponse(res)
		body.Success = false
		body.Message += "; summary generation failed"
		body.Code = "summary_failed"
		httputil.JSON(w, http.StatusInternalServerError, body)
		return
	}
	if err != nil {
		writeIngestError(w, res, err)
		return
	}
	httputil.OK(w, newImportResponse(res))
}

func newImportResponse(res *ingest.Result) importResponse {
	return importResponse{
		Success:         true,
		Message:         res.Message(),
		RunID:           res.RunID,
		RecordsFetched:  res.Fetched,
		RecordsInserted: res.Inserted,
		RecordsDropped:  res.Dropped,
		Partial:         res.FetchErr != nil,
		ExecutionTime:   seconds(res.Duration),
		Summary:         res.Summary,
	}
}

func writeIngestError(w http.ResponseWriter, res *ingest.Result, err error) {
	var pageErr *logcomex.PageError
	switch {
	case errors.Is(err, validate.ErrInvalid):
		httputil.ValidationError(w, err)
	case errors.Is(err, ingest.ErrEntityBusy), errors.Is(err, ingest.ErrLockLost):
		httputil.Conflict(w, err.Error())
	case res != nil && res.Inserted == 0 && errors.As(err, &pageErr):
		logger.Warn("import fetch failed", "error", err)
		httputil.JSON(w, http.StatusBadGateway, httputil.ErrorResponse{
			Success: false,
			Message: "upstream fetch failed; existing records were kept",
			Code:    "upstream_failed",
		})
	default:
		httputil.InternalError(w, err)
	}
}

type batchResponse struct {
	Success           bool              `json:"success"`
	Message           string            `json:"message"`
	EntitiesProcessed int               `json:"entities_processed"`
	SummariesCreated  int               `json:"summaries_created"`
	Skipped           int               `json:"skipped"`
	Failures          []summary.Failure `json:"failures,omitempty"`
	ExecutionTime     float64           `json:"execution_time"`
}

// HandlePublishAll regenerates summaries for every (or the listed) importer.
//
//	POST /api/summaries
func (h *Handlers) HandlePublishAll(w http.ResponseWriter, r *http.Request) {
	var req summary.BatchRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.summaries.PublishAll(r.Context(), req)
	switch {
	case errors.Is(err, summary.ErrNoRecords):
		httputil.Conflict(w, "no records stored; run an import first")
		return
	case errors.Is(err, validate.ErrInvalid):
		httputil.ValidationError(w, err)
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, batchResponse{
		Success:           len(res.Failures) == 0,
		Message:           fmt.Sprintf("Generated %d summaries for %d importers", res.SummariesCreated, res.EntitiesProcessed),
		EntitiesProcessed: res.EntitiesProcessed,
		SummariesCreated:  res.SummariesCreated,
		Skipped:           res.Skipped,
		Failures:          res.Failures,
		ExecutionTime:     seconds(res.Duration),
	})
}

type periodRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// HandleSummarizeEntity regenerates one importer's summary.
//
//	POST /api/summaries/{entity}
func (h *Handlers) HandleSummarizeEntity(w http.ResponseWriter, r *http.Request) {
	entity, ok := entityParam(w, r)
	if !ok {
		return
	}
	var req periodRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	sum, err := h.summaries.SummarizeAndPublish(r.Context(), entity, req.StartDate, req.EndDate)
	switch {
	case errors.Is(err, validate.ErrInvalid):
		httputil.ValidationError(w, err)
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	case sum == nil:
		httputil.NotFound(w, fmt.Sprintf("no records found for %s", entity))
		return
	}
	httputil.OK(w, sum)
}

// HandleGetSummary returns one stored summary.
//
//	GET /api/summaries/{entity}
func (h *Handlers) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	entity, ok := entityParam(w, r)
	if !ok {
		return
	}
	sum, err := h.summaries.Get(r.Context(), entity)
	if errors.Is(err, summary.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("no summary for %s", entity))
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, sum)
}

// HandleListSummaries returns every stored summary.
//
//	GET /api/summaries
func (h *Handlers) HandleListSummaries(w http.ResponseWriter, r *http.Request) {
	list, err := h.summaries.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		list = []domain.Summary{}
	}
	httputil.OK(w, map[string]any{"summaries": list, "count": len(list)})
}

// HandleListEntities returns the importers present in the record store.
//
//	GET /api/entities
func (h *Handlers) HandleListEntities(w http.ResponseWriter, r *http.Request) {
	names, err := h.summaries.ListEntities(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	httputil.OK(w, map[string]any{"entities": names, "count": len(names)})
}

// HandleStatus reports store counts.
//
//	GET /api/status
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.summaries.Status(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, st)
}

// HandleExportRecords streams every stored record as CSV.
//
//	GET /api/export/records.csv
func (h *Handlers) HandleExportRecords(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=import_records.csv")

	cw := export.NewRecordWriter(w)
	if err := h.records.ExportAll(r.Context(), cw.Write); err != nil {
		// headers are already sent; the truncated body is all we can signal
		logger.Error("export records failed", "error", err)
		return
	}
	if err := cw.Flush(); err != nil {
		logger.Error("export records flush failed", "error", err)
	}
}

// HandleExportSummaries writes every stored summary as CSV.
//
//	GET /api/export/summaries.csv
func (h *Handlers) HandleExportSummaries(w http.ResponseWriter, r *http.Request) {
	list, err := h.summaries.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=import_summaries.csv")
	if err := export.WriteSummaries(w, list); err != nil {
		logger.Error("export summaries failed", "error", err)
	}
}

func entityParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	entity, err := url.PathUnescape(chi.URLParam(r, "entity"))
	if err != nil || entity == "" {
		httputil.BadRequest(w, "invalid entity name")
		return "", false
	}
	return entity, true
}

func seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
