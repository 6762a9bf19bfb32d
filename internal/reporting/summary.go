package reporting

import (
	"fmt"
	"sort"
	"strings"
)

// RunSummary is the per-run account tally rendered after a pipeline run.
type RunSummary struct {
	Mode          string         // ingest, keyword, random, preset, diversity
	Processed     int            // handles or queries processed
	Verified      int            // accounts with real posts
	Unverified    int            // accounts with no usable real data
	CacheHits     int            // served from cache without a fetch
	PerSource     map[string]int // successful fetches per source
	GeneratedSeen int            // placeholder/synthetic records observed
	RealDataRatio float64        // real records / total records
}

// RenderSummary renders a run summary as a plain text block.
func RenderSummary(s *RunSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("run summary (mode=%s)\n", s.Mode))
	sb.WriteString(fmt.Sprintf("  processed:   %d\n", s.Processed))
	sb.WriteString(fmt.Sprintf("  verified:    %d\n", s.Verified))
	sb.WriteString(fmt.Sprintf("  unverified:  %d\n", s.Unverified))
	sb.WriteString(fmt.Sprintf("  cache hits:  %d\n", s.CacheHits))

	if len(s.PerSource) > 0 {
		sources := make([]string, 0, len(s.PerSource))
		for source := range s.PerSource {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		sb.WriteString("  per source:\n")
		for _, source := range sources {
			sb.WriteString(fmt.Sprintf("    %-14s %d\n", source+":", s.PerSource[source]))
		}
	}

	sb.WriteString(fmt.Sprintf("  generated:   %d\n", s.GeneratedSeen))
	sb.WriteString(fmt.Sprintf("  real ratio:  %.2f%%\n", s.RealDataRatio*100))

	return sb.String()
}
