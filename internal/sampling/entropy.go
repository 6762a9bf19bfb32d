package sampling

import (
	"math"

	"social-account-lab/internal/domain"
)

// Attribute names used as keys in DiversityMetrics and QuotaTable.
const (
	AttrFollowersTier = "followers_tier"
	AttrRegion        = "region"
	AttrLanguage      = "language"
	AttrSentiment     = "sentiment"
)

// attributeNames in stable reporting order.
var attributeNames = []string{AttrFollowersTier, AttrRegion, AttrLanguage, AttrSentiment}

// ComputeMetrics computes normalized Shannon entropy per attribute over a
// finalized candidate set, plus the mean across attributes. Candidates
// without attributes count toward the unknown category.
func ComputeMetrics(candidates []*domain.CandidateAccount) domain.DiversityMetrics {
	perAttr := make(map[string]float64, len(attributeNames))
	if len(candidates) == 0 {
		for _, name := range attributeNames {
			perAttr[name] = 0
		}
		return domain.DiversityMetrics{PerAttributeEntropy: perAttr}
	}

	var sum float64
	for _, name := range attributeNames {
		counts := make(map[string]int)
		for _, c := range candidates {
			counts[attributeValue(c, name)]++
		}
		h := normalizedEntropy(counts, len(candidates))
		perAttr[name] = h
		sum += h
	}

	return domain.DiversityMetrics{
		PerAttributeEntropy: perAttr,
		OverallDiversity:    sum / float64(len(attributeNames)),
	}
}

// normalizedEntropy is Shannon entropy over the category distribution divided
// by log2 of the number of observed categories. A single observed category
// yields 0; a uniform distribution over k categories yields 1.
func normalizedEntropy(counts map[string]int, total int) float64 {
	if total == 0 || len(counts) <= 1 {
		return 0
	}

	var h float64
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		h -= p * math.Log2(p)
	}

	return h / math.Log2(float64(len(counts)))
}

// attributeValue extracts the named categorical value from a candidate.
func attributeValue(c *domain.CandidateAccount, name string) string {
	if c.Attributes == nil {
		if name == AttrFollowersTier {
			return string(domain.TierUnknown)
		}
		return UnknownCategory
	}
	switch name {
	case AttrFollowersTier:
		return string(c.Attributes.FollowersTier)
	case AttrRegion:
		return c.Attributes.Region
	case AttrLanguage:
		return c.Attributes.Language
	case AttrSentiment:
		return string(c.Attributes.Sentiment)
	default:
		return UnknownCategory
	}
}
