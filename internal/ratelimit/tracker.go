// Package ratelimit tracks per-source call budgets and decides wait durations.
package ratelimit

import (
	"sync"
	"time"

	"social-account-lab/internal/domain"
)

// Default configuration values.
const (
	// DefaultInitialRemaining matches the X API v2 per-window default.
	DefaultInitialRemaining = 15
	// DefaultSafetyMargin: at or below this many remaining calls the source
	// is considered exhausted until the window resets.
	DefaultSafetyMargin = 1
	// DefaultResetSlack is added to the announced reset time before retrying.
	DefaultResetSlack = 5 * time.Second
)

// Reservation is the answer to a CheckAndReserve call.
type Reservation struct {
	// Allowed reports whether the caller may issue the call now.
	Allowed bool
	// WaitUntil, when non-zero, is the earliest time the caller should retry.
	// Zero with Allowed=false means the source is unavailable within the
	// configured wait ceiling and the caller must not block.
	WaitUntil time.Time
}

// State is a read-only snapshot of one source's rate limit state.
type State struct {
	Source    domain.FetchSource
	Remaining int
	ResetAt   time.Time
	Reserved  int // total successful reservations since construction
}

// sourceState is the single mutation point for one source's counters.
type sourceState struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	reserved  int
}

// Tracker tracks remaining call budget and reset time per external source.
// Each source has its own internally-synchronized cell; callers never mutate
// counters directly. No lock is held across a network call.
type Tracker struct {
	cells        map[domain.FetchSource]*sourceState
	initial      int
	safetyMargin int
	maxWait      time.Duration // <0: unlimited, 0: never block
	clock        func() time.Time
}

// Options configures a Tracker.
type Options struct {
	InitialRemaining int
	SafetyMargin     int
	// MaxWait is the wait ceiling. Negative means block for the full reset
	// window (batch contexts); zero converts any would-be wait into an
	// immediate unavailable signal (interactive contexts).
	MaxWait time.Duration
	Clock   func() time.Time
}

// New creates a Tracker covering all real fetch sources.
func New(opts Options) *Tracker {
	initial := opts.InitialRemaining
	if initial == 0 {
		initial = DefaultInitialRemaining
	}
	margin := opts.SafetyMargin
	if margin == 0 {
		margin = DefaultSafetyMargin
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	cells := make(map[domain.FetchSource]*sourceState)
	for _, s := range []domain.FetchSource{domain.SourcePrimaryAPI, domain.SourceSearchAPI, domain.SourceWebSearch} {
		cells[s] = &sourceState{remaining: initial}
	}

	return &Tracker{
		cells:        cells,
		initial:      initial,
		safetyMargin: margin,
		maxWait:      opts.MaxWait,
		clock:        clock,
	}
}

// CheckAndReserve atomically checks the budget for a source and reserves one
// call when allowed. When the budget is exhausted and the window has not yet
// reset, the reservation is denied with a wait hint (bounded by the ceiling).
func (t *Tracker) CheckAndReserve(source domain.FetchSource) Reservation {
	cell, ok := t.cells[source]
	if !ok {
		// Unknown source: nothing to track, allow.
		return Reservation{Allowed: true}
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()

	now := t.clock()

	// Window already reset: refresh the budget.
	if !cell.resetAt.IsZero() && !now.Before(cell.resetAt) {
		cell.remaining = t.initial
		cell.resetAt = time.Time{}
	}

	if cell.remaining <= t.safetyMargin {
		if cell.resetAt.IsZero() || !cell.resetAt.After(now) {
			// No known future reset but budget is gone; refresh optimistically.
			cell.remaining = t.initial
		} else {
			waitUntil := cell.resetAt.Add(DefaultResetSlack)
			if t.maxWait == 0 {
				return Reservation{Allowed: false}
			}
			if t.maxWait > 0 && waitUntil.Sub(now) > t.maxWait {
				return Reservation{Allowed: false}
			}
			return Reservation{Allowed: false, WaitUntil: waitUntil}
		}
	}

	cell.remaining--
	cell.reserved++
	return Reservation{Allowed: true}
}

// Record updates a source's state from a completed call's rate-limit signals.
// State is updated only from the result of a completed call attempt.
func (t *Tracker) Record(source domain.FetchSource, remaining int, resetAt time.Time) {
	cell, ok := t.cells[source]
	if !ok {
		return
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()

	if remaining >= 0 {
		cell.remaining = remaining
	}
	if !resetAt.IsZero() {
		cell.resetAt = resetAt
	}
}

// Snapshot returns a copy of the current state for a source, for logging.
func (t *Tracker) Snapshot(source domain.FetchSource) State {
	cell, ok := t.cells[source]
	if !ok {
		return State{Source: source}
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()

	return State{
		Source:    source,
		Remaining: cell.remaining,
		ResetAt:   cell.resetAt,
		Reserved:  cell.reserved,
	}
}

// TotalReserved returns the number of successful reservations across all
// sources. Dry-run pipelines must leave this at zero.
func (t *Tracker) TotalReserved() int {
	total := 0
	for _, cell := range t.cells {
		cell.mu.Lock()
		total += cell.reserved
		cell.mu.Unlock()
	}
	return total
}
