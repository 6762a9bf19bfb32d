package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"social-account-lab/internal/config"
	"social-account-lab/internal/discovery"
	"social-account-lab/internal/domain"
	"social-account-lab/internal/fetch"
	"social-account-lab/internal/fetch/stub"
	"social-account-lab/internal/lookup"
	"social-account-lab/internal/observability"
	"social-account-lab/internal/pipeline"
	"social-account-lab/internal/quality"
	"social-account-lab/internal/ratelimit"
	"social-account-lab/internal/reporting"
	"social-account-lab/internal/sampling"
	"social-account-lab/internal/storage"
	"social-account-lab/internal/storage/memory"
	pgstore "social-account-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "keyword", "Discovery mode: keyword, random, preset, or diversity")
	keyword := flag.String("keyword", "", "Search keyword or preset short name")
	category := flag.String("category", "", "Preset category (random/preset modes, optional filter for diversity)")
	maxResults := flag.Int("max-results", 10, "Maximum candidates to return")
	samplingMethod := flag.String("sampling-method", "", "Diversity sampling: stratified, quota, or random")
	quotaFile := flag.String("quota-file", "", "YAML quota table for quota sampling")
	dryRun := flag.Bool("dry-run", false, "Use placeholder sources, no persistence")
	out := flag.String("out", "", "Output CSV path (empty = stdout)")
	maxWait := flag.Duration("max-wait", 0, "Rate limit wait ceiling (0 = never wait, negative = unlimited)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stderr, "[discover] ", log.LstdFlags)

	cfg := config.Load()
	if *postgresDSN != "" {
		cfg.Database.DSN = *postgresDSN
	}

	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(logger, cancel)

	method := domain.SamplingMethod(*samplingMethod)
	if *samplingMethod == "" {
		method = domain.SamplingMethod(cfg.Sampling.Method)
	}
	if !method.IsValid() {
		logger.Printf("Error: unknown sampling method %q", *samplingMethod)
		os.Exit(2)
	}

	quotas := cfg.Sampling.Quotas
	if *quotaFile != "" {
		var err error
		quotas, err = loadQuotaTable(*quotaFile)
		if err != nil {
			logger.Printf("Error: read quota file: %v", err)
			os.Exit(2)
		}
	}

	candidates, summary, err := run(ctx, logger, cfg, pipeline.DiscoveryOptions{
		Mode:           pipeline.DiscoveryMode(*mode),
		Keyword:        *keyword,
		Category:       *category,
		MaxResults:     *maxResults,
		SamplingMethod: method,
		Quotas:         quotas,
		DryRun:         *dryRun,
	}, *maxWait, *useMemory)
	if err != nil && err != context.Canceled {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}

	if err := writeCandidates(*out, candidates); err != nil {
		logger.Printf("Error: write output: %v", err)
		os.Exit(1)
	}
	if summary != nil {
		fmt.Fprint(os.Stderr, reporting.RenderSummary(summary))
	}
}

func run(ctx context.Context, logger *log.Logger, cfg config.Config, opts pipeline.DiscoveryOptions, maxWait time.Duration, useMemory bool) ([]*domain.CandidateAccount, *reporting.RunSummary, error) {
	presets := discovery.MergedPresets(cfg.Presets)
	discOpts := discovery.Options{
		Scorer:  quality.NewScorer(cfg.Quality.Thresholds()),
		Presets: presets,
		Logger:  logger,
	}
	var provider sampling.AttributeProvider

	if opts.DryRun {
		// Dry runs use the labeled placeholder searcher and reserve no rate
		// budget; output never reaches real storage.
		discOpts.Searcher = stub.NewPlaceholder(time.Now().UnixNano())
	} else {
		discOpts.Searcher = fetch.NewWebSearchClient(cfg.WebSearch.APIKey,
			fetch.WithWebSearchBaseURL(cfg.WebSearch.BaseURL),
			fetch.WithWebSearchModel(cfg.WebSearch.Model))
		discOpts.Limiter = ratelimit.New(ratelimit.Options{
			InitialRemaining: cfg.Batch.InitialRate,
			SafetyMargin:     cfg.Batch.RateSafetyMargin,
			MaxWait:          maxWait,
		})
		if cfg.XAPI.BearerToken != "" {
			attrs := lookup.New(lookup.Options{
				Source:  fetch.NewXAPIClient(cfg.XAPI.BearerToken, fetch.WithXAPIBaseURL(cfg.XAPI.BaseURL)),
				Limiter: discOpts.Limiter,
				Logger:  logger,
			})
			provider = attrs
			discOpts.Metrics = attrs
		}
	}

	var store storage.CandidateStore
	if !opts.DryRun {
		if useMemory {
			store = memory.NewCandidateStore()
		} else {
			pool, err := pgstore.NewPool(ctx, cfg.Database.DSN)
			if err != nil {
				return nil, nil, fmt.Errorf("connect to postgres: %w", err)
			}
			defer pool.Close()
			store = pgstore.NewCandidateStore(pool)
		}
	}

	runner := pipeline.NewDiscoveryRunner(pipeline.DiscoveryRunnerOptions{
		Discoverer: discovery.New(discOpts),
		Sampler:    sampling.NewSampler(sampling.SamplerOptions{Provider: provider, Logger: logger}),
		Store:      store,
		Presets:    presets,
		Logger:     logger,
	})

	return runner.Run(ctx, opts)
}

// loadQuotaTable reads a YAML quota table: attribute -> value -> cap.
func loadQuotaTable(path string) (domain.QuotaTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var quotas domain.QuotaTable
	if err := yaml.Unmarshal(raw, &quotas); err != nil {
		return nil, err
	}
	return quotas, nil
}

func writeCandidates(path string, candidates []*domain.CandidateAccount) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return reporting.RenderCandidatesCSV(w, candidates)
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
