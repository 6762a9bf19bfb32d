package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-account-lab/internal/config"
	"social-account-lab/internal/fetch"
	"social-account-lab/internal/fetch/stub"
	"social-account-lab/internal/observability"
	"social-account-lab/internal/pipeline"
	"social-account-lab/internal/ratelimit"
	"social-account-lab/internal/reporting"
	"social-account-lab/internal/storage"
	chstore "social-account-lab/internal/storage/clickhouse"
	"social-account-lab/internal/storage/memory"
	"social-account-lab/internal/storage/migrations"
	pgstore "social-account-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	input := flag.String("input", "", "Handle list or candidate CSV file (- for stdin)")
	batchSize := flag.Int("batch-size", 0, "Handles processed concurrently per batch (0 = config default)")
	pause := flag.Duration("pause", -1, "Pause between batches (negative = config default)")
	useXAPI := flag.Bool("use-x-api", false, "Force the X API stages on")
	noXAPI := flag.Bool("no-x-api", false, "Force the X API stages off")
	allowGenerated := flag.Bool("allow-generated", false, "Deprecated, ignored: synthetic fallback has been removed")
	disallowGenerated := flag.Bool("disallow-generated", false, "Refuse synthetic records (the default; counterpart of -allow-generated)")
	dryRun := flag.Bool("dry-run", false, "Use placeholder sources, no cache or log writes")
	forceRefresh := flag.Bool("force-refresh", false, "Refetch every handle, bypassing the cache")
	production := flag.Bool("production", false, "Fail the run when synthetic records exceed 5%")
	maxWait := flag.Duration("max-wait", -1, "Rate limit wait ceiling (0 = never wait, negative = unlimited)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *useXAPI && *noXAPI {
		logger.Println("Error: -use-x-api and -no-x-api are mutually exclusive")
		os.Exit(2)
	}
	if *allowGenerated && *disallowGenerated {
		logger.Println("Error: -allow-generated and -disallow-generated are mutually exclusive")
		os.Exit(2)
	}

	cfg := config.Load()
	if *postgresDSN != "" {
		cfg.Database.DSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Clickhouse.DSN = *clickhouseDSN
	}
	if *batchSize > 0 {
		cfg.Batch.Size = *batchSize
	}
	if *pause >= 0 {
		cfg.Batch.Pause = *pause
	}
	if *maxWait != -1 {
		cfg.Batch.MaxWait = *maxWait
	}

	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr)
	}

	handles, err := readHandles(*input)
	if err != nil {
		logger.Printf("Error: read input: %v", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(logger, cancel)

	xEnabled := cfg.XAPI.BearerToken != ""
	if *useXAPI {
		if cfg.XAPI.BearerToken == "" && !*dryRun {
			logger.Println("Error: -use-x-api requires an X API bearer token (X_BEARER_TOKEN)")
			os.Exit(2)
		}
		xEnabled = true
	}
	if *noXAPI {
		xEnabled = false
	}

	summary, err := run(ctx, logger, cfg, handles, runConfig{
		useXAPI:        xEnabled,
		allowGenerated: *allowGenerated,
		dryRun:         *dryRun,
		forceRefresh:   *forceRefresh,
		production:     *production,
		useMemory:      *useMemory,
	})
	if summary != nil {
		fmt.Print(reporting.RenderSummary(summary))
	}
	if err != nil && err != context.Canceled {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}
}

type runConfig struct {
	useXAPI        bool
	allowGenerated bool
	dryRun         bool
	forceRefresh   bool
	production     bool
	useMemory      bool
}

func run(ctx context.Context, logger *log.Logger, cfg config.Config, handles []string, rc runConfig) (*reporting.RunSummary, error) {
	tracker := ratelimit.New(ratelimit.Options{
		InitialRemaining: cfg.Batch.InitialRate,
		SafetyMargin:     cfg.Batch.RateSafetyMargin,
		MaxWait:          cfg.Batch.MaxWait,
	})
	decisions := &pipeline.DecisionBuffer{}

	fetcherOpts := fetch.FetcherOptions{
		Limiter: tracker,
		Sink:    decisions,
		Logger:  logger,
	}

	if rc.dryRun {
		// Dry runs use labeled placeholder sources and never touch real storage.
		fetcherOpts.WebSearch = stub.NewPlaceholder(time.Now().UnixNano())
	} else {
		fetcherOpts.WebSearch = fetch.NewWebSearchClient(cfg.WebSearch.APIKey,
			fetch.WithWebSearchBaseURL(cfg.WebSearch.BaseURL),
			fetch.WithWebSearchModel(cfg.WebSearch.Model))
		if rc.useXAPI {
			x := fetch.NewXAPIClient(cfg.XAPI.BearerToken, fetch.WithXAPIBaseURL(cfg.XAPI.BaseURL))
			fetcherOpts.Timeline = x
			fetcherOpts.Search = x
		}
	}

	var cache storage.AccountCacheStore = memory.NewAccountCacheStore()
	var fetchLog storage.FetchLogStore = memory.NewFetchLogStore()

	if !rc.useMemory && !rc.dryRun {
		pool, err := pgstore.NewPool(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		cache = pgstore.NewAccountCacheStore(pool)

		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()
		fetchLog = chstore.NewFetchLogStore(conn)
	}

	ing := pipeline.NewIngestor(pipeline.IngestorOptions{
		Fetcher:   fetch.NewFetcher(fetcherOpts),
		Cache:     cache,
		FetchLog:  fetchLog,
		Decisions: decisions,
		Logger:    logger,
		BatchSize: cfg.Batch.Size,
		Pause:     cfg.Batch.Pause,
	})

	summary, _, err := ing.Run(ctx, handles, pipeline.RunOptions{
		UseXAPI:        rc.useXAPI && !rc.dryRun,
		ForceRefresh:   rc.forceRefresh,
		DryRun:         rc.dryRun,
		Production:     rc.production,
		AllowGenerated: rc.allowGenerated,
	})
	return summary, err
}

func readHandles(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("-input is required")
	}
	if path == "-" {
		return reporting.ParseInputHandles(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return reporting.ParseInputHandles(f)
}

func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}

func handleSignals(logger *log.Logger, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)
	cancel()

	sig = <-sigCh
	logger.Printf("Received second signal %v, forcing exit", sig)
	os.Exit(1)
}
