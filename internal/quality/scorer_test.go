package quality

import (
	"math"
	"strings"
	"testing"

	"social-account-lab/internal/domain"
)

const tolerance = 1e-6

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestFollowersNorm_Bands(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	tests := []struct {
		followers int
		want      float64
	}{
		{50, 0.05},   // below min_followers: 0.1 * 50/100
		{99, 0.099},  // just below the min_followers boundary
		{100, 0.3},   // at min_followers: 0.3 * 100/100
		{500, 1.5},   // mid band scales against min_followers; clamped later
		{999, 2.997}, // top of the sub-1000 band
		{1000, 0.5},  // band boundary
		{5000, 0.5 + 0.5*4000.0/9000.0},
		{9999, 0.5 + 0.5*8999.0/9000.0},
		{10000, 1.0}, // band boundary
		{50000, 1.0},
	}

	for _, tt := range tests {
		got := s.followersNorm(tt.followers)
		if !almostEqual(got, tt.want) {
			t.Errorf("followersNorm(%d) = %f, want %f", tt.followers, got, tt.want)
		}
	}
}

func TestRecencyNorm_Bands(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	tests := []struct {
		days int
		want float64
	}{
		{0, 1.0},
		{30, 1.0},
		{31, 0.7},
		{90, 0.7},
		{91, 0.3},
		{180, 0.3},
		{181, 0.0},
	}

	for _, tt := range tests {
		if got := s.recencyNorm(tt.days); !almostEqual(got, tt.want) {
			t.Errorf("recencyNorm(%d) = %f, want %f", tt.days, got, tt.want)
		}
	}
}

func TestPostCountNorm_Bands(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{20, 0.12}, // 0.3 * 20/50
		{49, 0.3 * 49.0 / 50.0},
		{50, 0.5},
		{525, 0.75},
		{1000, 1.0},
		{1200, 1.0},
	}

	for _, tt := range tests {
		if got := postCountNorm(tt.count); !almostEqual(got, tt.want) {
			t.Errorf("postCountNorm(%d) = %f, want %f", tt.count, got, tt.want)
		}
	}
}

func TestScore_MetricFixture_HighQuality(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	// 0.5*0.7222 + 0.3*1.0 + 0.2*1.0 = 0.8611
	a := s.Score(&domain.CandidateAccount{Metrics: &domain.AccountMetrics{
		FollowersCount: 5000,
		InactiveDays:   5,
		PostCount:      1200,
	}})

	want := 0.5*(0.5+0.5*4000.0/9000.0) + 0.3 + 0.2
	if !almostEqual(a.Score, want) {
		t.Errorf("score = %f, want %f", a.Score, want)
	}
	if !a.Passed {
		t.Errorf("expected pass, reasons: %v", a.Reasons)
	}
	if a.Mode != domain.ScoreModeMetric {
		t.Errorf("expected metric mode, got %s", a.Mode)
	}
}

func TestScore_MetricFixture_LowQuality(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	// 0.5*0.05 + 0.3*0.0 + 0.2*0.12 = 0.049
	a := s.Score(&domain.CandidateAccount{Metrics: &domain.AccountMetrics{
		FollowersCount: 50,
		InactiveDays:   200,
		PostCount:      20,
	}})

	if math.Abs(a.Score-0.049) > 0.005 {
		t.Errorf("score = %f, want ~0.05", a.Score)
	}
	if a.Passed {
		t.Error("expected fail for low-quality account")
	}
	if len(a.Reasons) == 0 {
		t.Error("failed assessment must carry reasons")
	}
}

func TestScore_ClampedToUnitInterval(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	// 500 followers yields followers_norm 1.5; the final score must clamp.
	a := s.Score(&domain.CandidateAccount{Metrics: &domain.AccountMetrics{
		FollowersCount: 999,
		InactiveDays:   1,
		PostCount:      2000,
	}})

	if a.Score < 0 || a.Score > 1 {
		t.Errorf("score %f outside [0,1]", a.Score)
	}
}

func TestScore_FallbackFixtures(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	longDesc := strings.Repeat("x", 40)

	tests := []struct {
		name        string
		confidence  float64
		description string
		wantScore   float64
		wantPass    bool
	}{
		{"high confidence adequate description", 0.9, longDesc, 0.7, true},
		{"low confidence", 0.6, longDesc, 0.48, false},
		{"high confidence short description", 0.9, "too short", 0.63, true},
		{"boundary confidence", 0.7, longDesc, 0.6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := s.Score(&domain.CandidateAccount{
				Confidence:  tt.confidence,
				Description: tt.description,
			})

			if !almostEqual(a.Score, tt.wantScore) {
				t.Errorf("score = %f, want %f", a.Score, tt.wantScore)
			}
			if a.Passed != tt.wantPass {
				t.Errorf("passed = %v, want %v", a.Passed, tt.wantPass)
			}
			if a.Mode != domain.ScoreModeFallback {
				t.Errorf("expected fallback mode, got %s", a.Mode)
			}
		})
	}
}

func TestScore_FallbackDescriptionLengthCountsRunes(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	// 10 runes but 30 bytes: still a short description.
	short := strings.Repeat("あ", 10)
	a := s.Score(&domain.CandidateAccount{Confidence: 0.9, Description: short})
	if !almostEqual(a.Score, 0.63) {
		t.Errorf("score = %f, want 0.63 for a 10-rune description", a.Score)
	}

	// 25 runes clears the threshold regardless of byte length.
	long := strings.Repeat("あ", 25)
	a = s.Score(&domain.CandidateAccount{Confidence: 0.9, Description: long})
	if !almostEqual(a.Score, 0.7) {
		t.Errorf("score = %f, want 0.7 for a 25-rune description", a.Score)
	}
}

func TestScore_FallbackAlwaysNotesEstimate(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	a := s.Score(&domain.CandidateAccount{Confidence: 0.85, Description: strings.Repeat("y", 30)})

	found := false
	for _, r := range a.Reasons {
		if strings.Contains(r, "fallback estimate") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("fallback assessment must note it is an estimate, reasons: %v", a.Reasons)
	}
}
