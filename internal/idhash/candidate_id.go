package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"social-account-lab/internal/domain"
)

// ComputeCandidateID computes a deterministic candidate_id using SHA256.
// Formula: SHA256(normalized_handle|origin|query)
// Returns hex-encoded hash (64 characters).
//
// The handle is normalized first so "@Alice" and "alice" hash identically;
// origin and query are included so the same account discovered through
// different paths keeps distinct records.
func ComputeCandidateID(handle string, origin domain.SourceOrigin, query string) string {
	data := fmt.Sprintf("%s|%s|%s",
		domain.NormalizeHandle(handle),
		string(origin),
		query,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
