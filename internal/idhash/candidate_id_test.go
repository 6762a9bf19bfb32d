package idhash

import (
	"testing"

	"social-account-lab/internal/domain"
)

func TestComputeCandidateID(t *testing.T) {
	tests := []struct {
		name    string
		handle  string
		origin  domain.SourceOrigin
		query   string
		wantLen int // hash length should be 64
	}{
		{
			name:    "keyword origin",
			handle:  "alice_ai",
			origin:  domain.OriginKeyword,
			query:   "AI engineer",
			wantLen: 64,
		},
		{
			name:    "random origin empty query",
			handle:  "bob",
			origin:  domain.OriginRandom,
			query:   "",
			wantLen: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ComputeCandidateID(tt.handle, tt.origin, tt.query)
			if len(id) != tt.wantLen {
				t.Errorf("expected length %d, got %d", tt.wantLen, len(id))
			}
		})
	}
}

func TestComputeCandidateID_Deterministic(t *testing.T) {
	a := ComputeCandidateID("alice", domain.OriginKeyword, "AI")
	b := ComputeCandidateID("alice", domain.OriginKeyword, "AI")
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
}

func TestComputeCandidateID_HandleNormalization(t *testing.T) {
	a := ComputeCandidateID("@Alice", domain.OriginKeyword, "AI")
	b := ComputeCandidateID("alice", domain.OriginKeyword, "AI")
	if a != b {
		t.Errorf("handle normalization not applied: %s vs %s", a, b)
	}
}

func TestComputeCandidateID_DistinctOrigins(t *testing.T) {
	a := ComputeCandidateID("alice", domain.OriginKeyword, "AI")
	b := ComputeCandidateID("alice", domain.OriginRandom, "AI")
	if a == b {
		t.Error("different origins must produce different IDs")
	}
}
