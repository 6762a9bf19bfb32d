package domain

// SamplingMethod selects the diversity sampling strategy. Exactly one method
// applies per invocation; methods are never blended.
type SamplingMethod string

const (
	SamplingStratified SamplingMethod = "stratified"
	SamplingQuota      SamplingMethod = "quota"
	SamplingRandom     SamplingMethod = "random"
)

// String returns the string representation of SamplingMethod.
func (m SamplingMethod) String() string {
	return string(m)
}

// IsValid checks if the method is a valid value.
func (m SamplingMethod) IsValid() bool {
	return m == SamplingStratified || m == SamplingQuota || m == SamplingRandom
}

// DiversityMetrics summarizes entropy-based diversity over a finalized
// candidate set. Read-only; not attached to individual accounts.
type DiversityMetrics struct {
	PerAttributeEntropy map[string]float64 // attribute name -> normalized entropy [0,1]
	OverallDiversity    float64            // mean of per-attribute entropies
}

// QuotaTable caps admitted candidates per attribute value for quota sampling.
// Outer key is the attribute name ("followers", "region", "sentiment"),
// inner key is the category value, e.g. Quotas["region"]["JP"] = 10.
type QuotaTable map[string]map[string]int
