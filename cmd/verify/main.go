package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"social-account-lab/internal/config"
	"social-account-lab/internal/reporting"
	"social-account-lab/internal/verification"

	pgstore "social-account-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	input := flag.String("input", "", "Handle list or candidate CSV file (- for stdin)")
	purge := flag.Bool("purge", false, "Delete synthetic-marked cache records")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")

	flag.Parse()

	logger := log.New(os.Stderr, "[verify] ", log.LstdFlags)

	cfg := config.Load()
	if *postgresDSN != "" {
		cfg.Database.DSN = *postgresDSN
	}

	handles, err := readHandles(*input)
	if err != nil {
		logger.Printf("Error: read input: %v", err)
		os.Exit(2)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Printf("Error: connect to postgres: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	verifier := verification.New(verification.Options{
		Cache:  pgstore.NewAccountCacheStore(pool),
		Logger: logger,
	})

	var result *verification.Result
	if *purge {
		result, err = verifier.Purge(ctx, handles)
	} else {
		result, err = verifier.Verify(ctx, handles)
	}
	if err != nil {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}

	fmt.Print(verification.RenderResult(result))

	// Unresolved violations fail the audit so CI can gate on it.
	remaining := (result.Synthetic - result.Purged) + result.Empty + result.Errors
	if remaining > 0 {
		os.Exit(1)
	}
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
