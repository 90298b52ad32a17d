// Package app wires configuration into the running pipeline: database,
// lock store, archive bucket, Logcomex client and the two services. Both
// the HTTP server and the one-shot importer build from here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/tradeintel/internal/aggregate"
	"github.com/ignite/tradeintel/internal/classify"
	"github.com/ignite/tradeintel/internal/config"
	"github.com/ignite/tradeintel/internal/logcomex"
	"github.com/ignite/tradeintel/internal/metrics"
	"github.com/ignite/tradeintel/internal/notify"
	"github.com/ignite/tradeintel/internal/pkg/distlock"
	"github.com/ignite/tradeintel/internal/pkg/logger"
	"github.com/ignite/tradeintel/internal/repository/postgres"
	"github.com/ignite/tradeintel/internal/service/ingest"
	"github.com/ignite/tradeintel/internal/service/summary"
)

// App holds the wired components.
type App struct {
	DB       *sql.DB
	Redis    *redis.Client
	S3       *s3.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Pipeline

	Records   *postgres.RecordRepo
	Summaries *postgres.SummaryRepo
	Ingest    *ingest.Service
	Summary   *summary.Service
}

// ConfigureLogger applies the log section of cfg to the default logger.
func ConfigureLogger(cfg config.LogConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedact(!cfg.DisableRedaction)
}

// New connects to the configured backends and builds the services.
// Redis and the archive bucket are optional; the database is not.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required (DATABASE_URL)")
	}
	if cfg.Logcomex.APIKey == "" {
		logger.Warn("LOGCOMEX_API_KEY not set; imports will be rejected upstream")
	}

	tables, err := classify.LoadTables(cfg.Classification.TablesPath)
	if err != nil {
		return nil, err
	}
	classifier, err := classify.New(tables)
	if err != nil {
		return nil, err
	}
	rules, err := aggregate.LoadRules(cfg.Classification.TablesPath)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{DB: db, Registry: prometheus.NewRegistry()}
	a.Metrics = metrics.New(a.Registry)
	a.Redis = openRedis(ctx, cfg.Redis.URL)

	client := logcomex.NewClient(logcomex.Config{
		APIKey:           cfg.Logcomex.APIKey,
		BaseURL:          cfg.Logcomex.BaseURL,
		ProductSignature: cfg.Logcomex.ProductSignature,
		Timeout:          cfg.Logcomex.Timeout(),
		PageDelay:        cfg.Logcomex.PageDelay(),
		MaxPages:         cfg.Logcomex.MaxPages,
	})
	client.SetMetrics(a.Metrics)

	if cfg.Archive.Enabled && cfg.Archive.S3Bucket != "" {
		a.S3, err = newS3Client(ctx, cfg.Archive)
		if err != nil {
			logger.Warn("archive disabled: aws config failed", "error", err)
		} else {
			client.SetArchiver(logcomex.NewS3Archiver(a.S3, cfg.Archive.S3Bucket, cfg.Archive.Prefix))
			logger.Info("raw page archive enabled", "bucket", cfg.Archive.S3Bucket, "prefix", cfg.Archive.Prefix)
		}
	}

	a.Records = postgres.NewRecordRepo(db)
	a.Summaries = postgres.NewSummaryRepo(db)

	a.Summary = summary.NewService(a.Records, a.Summaries, aggregate.New(classifier, rules),
		summary.Config{Concurrency: cfg.Summary.Concurrency})
	a.Summary.SetMetrics(a.Metrics)
	if len(cfg.Webhook.URLs) > 0 {
		hook := notify.NewWebhook(cfg.Webhook.URLs, cfg.Webhook.Timeout(), cfg.Webhook.MaxRetries)
		hook.SetMetrics(a.Metrics)
		a.Summary.SetNotifier(hook)
		logger.Info("summary webhooks enabled", "targets", len(cfg.Webhook.URLs))
	}

	a.Ingest = ingest.NewService(client, a.Records)
	a.Ingest.SetSummarizer(a.Summary)
	a.Ingest.SetMetrics(a.Metrics)
	a.Ingest.SetLocks(distlock.NewFactory(a.Redis, db, cfg.Ingest.LockTTL()))

	logger.Info("pipeline ready",
		"rules_version", rules.Version,
		"tables_version", classifier.Version(),
		"redis", a.Redis != nil,
		"archive", a.S3 != nil)
	return a, nil
}

// Close releases the backend connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// openRedis returns nil when url is empty or the server does not answer;
// ingest locks then fall back to Postgres advisory locks.
func openRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		logger.Info("redis not configured; using postgres advisory locks")
		return nil
	}
	var client *redis.Client
	if opts, err := redis.ParseURL(url); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: url})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; using postgres advisory locks", "error", err)
		client.Close()
		return nil
	}
	return client
}

func newS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 3
		o.RetryMode = aws.RetryModeStandard
	}), nil
}
