package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/tradeintel/internal/app"
	"github.com/ignite/tradeintel/internal/config"
	"github.com/ignite/tradeintel/internal/domain"
	"github.com/ignite/tradeintel/internal/pkg/logger"
	"github.com/ignite/tradeintel/internal/service/ingest"
	"github.com/ignite/tradeintel/internal/service/summary"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	entity := flag.String("entity", "", "importer name to fetch (default: DEFAULT_IMPORTER_NAME)")
	months := flag.Int("months", 0, "months back from today (default: DEFAULT_MONTHS_BACK)")
	start := flag.String("start", "", "start date YYYY-MM-DD (overrides -months)")
	end := flag.String("end", "", "end date YYYY-MM-DD (default: today)")
	clearScope := flag.String("clear", string(domain.ClearEntity), "records to remove first: none, entity or all")
	summarize := flag.Bool("summarize", false, "regenerate the importer's summary after storing")
	allSummaries := flag.Bool("all-summaries", false, "regenerate every importer's summary and exit")
	flag.Parse()

	scope := domain.ClearScope(*clearScope)
	if !scope.Valid() {
		log.Fatalf("invalid -clear %q: want none, entity or all", *clearScope)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	app.ConfigureLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer a.Close()

	if *allSummaries {
		if err := runAllSummaries(ctx, a.Summary); err != nil {
			a.Close()
			log.Fatal(err)
		}
		return
	}

	name := *entity
	if name == "" {
		name = cfg.Ingest.DefaultImporter
	}
	if *months == 0 {
		*months = cfg.Ingest.DefaultMonthsBack
	}
	from, to := dateRange(time.Now(), *months, *start, *end)

	req := ingest.Request{
		EntityName: name,
		StartDate:  from,
		EndDate:    to,
		ClearScope: scope,
	}
	if err := runImport(ctx, a.Ingest, req, *summarize); err != nil {
		a.Close()
		log.Fatal(err)
	}
}

// dateRange resolves the window to fetch. Explicit dates win; otherwise the
// window ends today and starts months before it.
func dateRange(now time.Time, months int, start, end string) (string, string) {
	if end == "" {
		end = now.Format(domain.DateLayout)
	}
	if start == "" {
		start = now.AddDate(0, -months, 0).Format(domain.DateLayout)
	}
	return start, end
}

type importer interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
	IngestAndSummarize(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

func runImport(ctx context.Context, svc importer, req ingest.Request, summarize bool) error {
	logger.Info("import starting",
		"importer", req.EntityName, "start", req.StartDate, "end", req.EndDate, "clear", req.ClearScope)

	run := svc.Ingest
	if summarize {
		run = svc.IngestAndSummarize
	}
	res, err := run(ctx, req)
	if res != nil {
		fmt.Println(res.Message())
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", req.EntityName, err)
	}
	if res.Summary != nil {
		fmt.Printf("Summary: score %d/10, %d records, top broker %q\n",
			res.Summary.OpportunityScore, res.Summary.RecordCount, res.Summary.TopBroker)
	}
	if res.FetchErr != nil {
		logger.Warn("upstream stopped early", "error", res.FetchErr)
	}
	return nil
}

type batchPublisher interface {
	PublishAll(ctx context.Context, req summary.BatchRequest) (*summary.BatchResult, error)
}

func runAllSummaries(ctx context.Context, svc batchPublisher) error {
	res, err := svc.PublishAll(ctx, summary.BatchRequest{ClearExisting: true})
	if errors.Is(err, summary.ErrNoRecords) {
		fmt.Println("No records stored; run an import first")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d summaries for %d importers (%d skipped) in %s\n",
		res.SummariesCreated, res.EntitiesProcessed, res.Skipped, res.Duration.Round(time.Millisecond))
	for _, f := range res.Failures {
		fmt.Printf("  failed: %s: %s\n", f.Entity, f.Error)
	}
	if len(res.Failures) > 0 {
		return fmt.Errorf("%d summaries failed", len(res.Failures))
	}
	return nil
}
