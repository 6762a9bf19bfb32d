// Package verification audits the account cache for hygiene violations:
// synthetic-marked records, empty records and missing handles.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
)

// RecordState classifies one cached record during an audit.
type RecordState string

const (
	StateOK        RecordState = "ok"
	StateMissing   RecordState = "missing"
	StateSynthetic RecordState = "synthetic"
	StateEmpty     RecordState = "empty"
	StateError     RecordState = "error"
)

// RecordReport is the audit outcome for one handle.
type RecordReport struct {
	Handle    string
	State     RecordState
	PostCount int
	Source    domain.FetchSource
	FetchedAt int64
	Detail    string // non-empty for synthetic and error states
	Purged    bool
}

// Result aggregates an audit run.
type Result struct {
	Checked   int
	OK        int
	Missing   int
	Synthetic int
	Empty     int
	Errors    int
	Purged    int
	Reports   []RecordReport
}

// Clean reports whether the audited records are free of hygiene violations.
// Missing handles are not violations; they simply have not been ingested.
func (r *Result) Clean() bool {
	return r.Synthetic == 0 && r.Empty == 0 && r.Errors == 0
}

// CacheVerifier audits cached account records.
type CacheVerifier struct {
	cache  storage.AccountCacheStore
	logger *log.Logger
}

// Options contains configuration for creating a CacheVerifier.
type Options struct {
	Cache  storage.AccountCacheStore
	Logger *log.Logger
}

// New creates a CacheVerifier.
func New(opts Options) *CacheVerifier {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &CacheVerifier{cache: opts.Cache, logger: logger}
}

// Verify audits the cached records for the given handles.
func (v *CacheVerifier) Verify(ctx context.Context, handles []string) (*Result, error) {
	return v.run(ctx, handles, false)
}

// Purge audits the cached records and deletes every synthetic-marked record,
// so the next ingestion run refetches them from real sources.
func (v *CacheVerifier) Purge(ctx context.Context, handles []string) (*Result, error) {
	return v.run(ctx, handles, true)
}

func (v *CacheVerifier) run(ctx context.Context, handles []string, purge bool) (*Result, error) {
	result := &Result{}

	for _, raw := range handles {
		handle := domain.NormalizeHandle(raw)
		if handle == "" {
			continue
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		result.Checked++
		report := v.inspect(ctx, handle)

		if purge && report.State == StateSynthetic {
			if err := v.cache.Delete(ctx, handle); err != nil {
				report.Detail = fmt.Sprintf("%s; purge failed: %v", report.Detail, err)
			} else {
				report.Purged = true
				result.Purged++
				v.logger.Printf("purged synthetic record handle=%s", handle)
			}
		}

		switch report.State {
		case StateOK:
			result.OK++
		case StateMissing:
			result.Missing++
		case StateSynthetic:
			result.Synthetic++
		case StateEmpty:
			result.Empty++
		case StateError:
			result.Errors++
		}
		result.Reports = append(result.Reports, report)
	}

	return result, nil
}

func (v *CacheVerifier) inspect(ctx context.Context, handle string) RecordReport {
	report := RecordReport{Handle: handle}

	rec, err := v.cache.Get(ctx, handle)
	if errors.Is(err, storage.ErrNotFound) {
		report.State = StateMissing
		return report
	}
	if err != nil {
		report.State = StateError
		report.Detail = err.Error()
		return report
	}

	report.PostCount = len(rec.Posts)
	report.Source = rec.Source
	report.FetchedAt = rec.FetchedAt

	if rec.ContainsSynthetic() {
		report.State = StateSynthetic
		report.Detail = syntheticDetail(rec)
		return report
	}
	if len(rec.Posts) == 0 {
		report.State = StateEmpty
		return report
	}

	report.State = StateOK
	return report
}

func syntheticDetail(rec *domain.CachedAccount) string {
	var ids []string
	for _, p := range rec.Posts {
		if p.IsSynthetic() {
			ids = append(ids, p.ID)
		}
	}
	return "synthetic post ids: " + strings.Join(ids, ", ")
}

// RenderResult renders an audit result as a plain text block.
func RenderResult(r *Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("cache audit: %d checked\n", r.Checked))
	sb.WriteString(fmt.Sprintf("  ok:         %d\n", r.OK))
	sb.WriteString(fmt.Sprintf("  missing:    %d\n", r.Missing))
	sb.WriteString(fmt.Sprintf("  empty:      %d\n", r.Empty))
	sb.WriteString(fmt.Sprintf("  synthetic:  %d\n", r.Synthetic))
	sb.WriteString(fmt.Sprintf("  errors:     %d\n", r.Errors))
	if r.Purged > 0 {
		sb.WriteString(fmt.Sprintf("  purged:     %d\n", r.Purged))
	}

	for _, rep := range r.Reports {
		if rep.State == StateOK || rep.State == StateMissing {
			continue
		}
		line := fmt.Sprintf("  %s: %s", rep.Handle, rep.State)
		if rep.Detail != "" {
			line += " (" + rep.Detail + ")"
		}
		if rep.Purged {
			line += " [purged]"
		}
		sb.WriteString(line + "\n")
	}

	return sb.String()
}
