package domain

// FetchLogEntry is one per-attempt fetch decision record, persisted for
// offline analysis of source behavior and rate limit consumption.
type FetchLogEntry struct {
	Handle             string
	Source             FetchSource
	Attempt            int
	Status             int // HTTP status of the attempt, 0 when none applies
	RateLimitRemaining int // -1 when the source reported no signal
	ResetAt            int64
	GeneratedFlag      bool // always false for real pipelines
	Error              string
	OccurredAt         int64
}
