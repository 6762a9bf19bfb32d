package discovery

import (
	"errors"
	"sort"
)

// ErrUnknownCategory is returned when a random discovery restricts the preset
// pool to a category outside the taxonomy.
var ErrUnknownCategory = errors.New("unknown preset category")

// The preset taxonomy is fixed at seven categories.
const (
	CategoryTechnology = "technology"
	CategoryAI         = "ai"
	CategoryBusiness   = "business"
	CategoryScience    = "science"
	CategoryCulture    = "culture"
	CategoryPolitics   = "politics"
	CategoryHealth     = "health"
)

// presetQueries maps each category to its preset discovery queries. The short
// preset name (map key of presetLookup) resolves to a full search query.
var presetQueries = map[string][]string{
	CategoryTechnology: {
		"software engineering thought leaders",
		"open source maintainers",
		"cloud infrastructure experts",
		"developer advocates",
	},
	CategoryAI: {
		"AI researchers",
		"machine learning engineers",
		"LLM practitioners",
		"AI safety commentators",
	},
	CategoryBusiness: {
		"startup founders",
		"venture capital investors",
		"product managers",
	},
	CategoryScience: {
		"physics communicators",
		"climate scientists",
		"biology researchers",
	},
	CategoryCulture: {
		"film critics",
		"music journalists",
		"contemporary artists",
	},
	CategoryPolitics: {
		"policy analysts",
		"political journalists",
		"election researchers",
	},
	CategoryHealth: {
		"public health experts",
		"medical researchers",
		"nutrition scientists",
	},
}

// PresetTable maps categories to their discovery queries. Configured
// overrides replace a category's queries wholesale; categories absent from
// the overrides keep the built-in queries.
type PresetTable map[string][]string

// DefaultPresets returns a copy of the built-in preset table.
func DefaultPresets() PresetTable {
	return MergedPresets(nil)
}

// MergedPresets overlays per-category overrides onto the built-in table.
// Override categories outside the built-in taxonomy are added as new
// categories.
func MergedPresets(overrides map[string][]string) PresetTable {
	merged := make(PresetTable, len(presetQueries)+len(overrides))
	for c, queries := range presetQueries {
		merged[c] = append([]string(nil), queries...)
	}
	for c, queries := range overrides {
		merged[c] = append([]string(nil), queries...)
	}
	return merged
}

// Categories returns the table's categories in stable order.
func (t PresetTable) Categories() []string {
	cats := make([]string, 0, len(t))
	for c := range t {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Pool returns the table's queries, optionally restricted to one category.
// An empty category selects the full pool.
func (t PresetTable) Pool(category string) ([]string, error) {
	if category == "" {
		var pool []string
		for _, c := range t.Categories() {
			pool = append(pool, t[c]...)
		}
		return pool, nil
	}

	queries, ok := t[category]
	if !ok {
		return nil, ErrUnknownCategory
	}
	return append([]string(nil), queries...), nil
}

// presetLookup resolves short preset keywords to full search queries.
var presetLookup = map[string]string{
	"tech":     "software engineering thought leaders",
	"ai":       "AI researchers",
	"ml":       "machine learning engineers",
	"startup":  "startup founders",
	"vc":       "venture capital investors",
	"science":  "physics communicators",
	"climate":  "climate scientists",
	"politics": "policy analysts",
	"health":   "public health experts",
}

// Categories returns the built-in preset taxonomy in stable order.
func Categories() []string {
	return DefaultPresets().Categories()
}

// ResolvePreset maps a short preset keyword to its full query. Unknown
// keywords pass through unchanged so free-form keywords keep working.
func ResolvePreset(keyword string) string {
	if q, ok := presetLookup[keyword]; ok {
		return q
	}
	return keyword
}

// PresetPool returns the built-in preset queries, optionally restricted to
// one category. An empty category selects the full pool.
func PresetPool(category string) ([]string, error) {
	return DefaultPresets().Pool(category)
}
