package clickhouse

import (
	"context"
	"fmt"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
)

// FetchLogStore implements storage.FetchLogStore using ClickHouse.
// The log is append-only; MergeTree does not enforce uniqueness and the log
// has no natural unique key.
type FetchLogStore struct {
	conn *Conn
}

// NewFetchLogStore creates a new FetchLogStore.
func NewFetchLogStore(conn *Conn) *FetchLogStore {
	return &FetchLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FetchLogStore = (*FetchLogStore)(nil)

// InsertBulk appends a batch of decision entries.
func (s *FetchLogStore) InsertBulk(ctx context.Context, entries []*domain.FetchLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e == nil || e.Handle == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fetch_log (
			handle, source, attempt, status, rate_limit_remaining,
			reset_at, generated_flag, error, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		err = batch.Append(
			domain.NormalizeHandle(e.Handle),
			string(e.Source),
			uint8(e.Attempt),
			int32(e.Status),
			int32(e.RateLimitRemaining),
			e.ResetAt,
			boolToUInt8(e.GeneratedFlag),
			e.Error,
			e.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByHandle retrieves all entries for a handle, ordered by occurred_at ASC.
func (s *FetchLogStore) GetByHandle(ctx context.Context, handle string) ([]*domain.FetchLogEntry, error) {
	query := `
		SELECT handle, source, attempt, status, rate_limit_remaining,
		       reset_at, generated_flag, error, occurred_at
		FROM fetch_log
		WHERE handle = ?
		ORDER BY occurred_at ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.NormalizeHandle(handle))
	if err != nil {
		return nil, fmt.Errorf("get fetch log by handle: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByTimeRange retrieves entries within [start, end] (inclusive).
func (s *FetchLogStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.FetchLogEntry, error) {
	query := `
		SELECT handle, source, attempt, status, rate_limit_remaining,
		       reset_at, generated_flag, error, occurred_at
		FROM fetch_log
		WHERE occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get fetch log by time range: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanEntries(rows chRows) ([]*domain.FetchLogEntry, error) {
	var entries []*domain.FetchLogEntry

	for rows.Next() {
		var e domain.FetchLogEntry
		var sourceStr string
		var attempt uint8
		var status, remaining int32
		var generated uint8

		err := rows.Scan(
			&e.Handle, &sourceStr, &attempt, &status, &remaining,
			&e.ResetAt, &generated, &e.Error, &e.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fetch log row: %w", err)
		}

		e.Source = domain.FetchSource(sourceStr)
		e.Attempt = int(attempt)
		e.Status = int(status)
		e.RateLimitRemaining = int(remaining)
		e.GeneratedFlag = generated != 0
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetch log rows: %w", err)
	}

	return entries, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
