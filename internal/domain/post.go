package domain

import "strings"

// Synthetic post ID prefixes. Posts carrying these markers were produced by a
// generator, not fetched from a real source. The pipeline never emits them for
// real result sets; legacy caches may still contain them.
var syntheticIDPrefixes = []string{"sample_", "generated_", "synthetic_"}

// PlaceholderIDPrefix marks dry-run placeholder posts. Placeholder data is used
// for pipeline wiring only and never enters the real cache path.
const PlaceholderIDPrefix = "dry_run_"

// Post is an opaque payload from a source. The pipeline does not interpret it
// beyond existence, count and synthetic-marker hygiene.
type Post struct {
	ID        string
	Text      string
	Link      string
	CreatedAt int64 // Unix timestamp in milliseconds
	Likes     int
	Reposts   int
}

// IsSynthetic reports whether the post ID carries a recognized synthetic marker.
func (p *Post) IsSynthetic() bool {
	for _, prefix := range syntheticIDPrefixes {
		if strings.HasPrefix(p.ID, prefix) {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether the post is labeled dry-run placeholder data.
func (p *Post) IsPlaceholder() bool {
	return strings.HasPrefix(p.ID, PlaceholderIDPrefix)
}

// FetchOutcome is the result of running the source chain for one handle.
// Owned by the fetch step; immutable once produced.
type FetchOutcome struct {
	Handle    string
	Posts     []*Post
	Source    FetchSource
	Attempts  int   // total call attempts across all stages
	FetchedAt int64 // Unix timestamp in milliseconds
}

// HasRealPosts reports whether the outcome contains posts from a real source.
func (o *FetchOutcome) HasRealPosts() bool {
	return o.Source.IsReal() && len(o.Posts) > 0
}

// ContainsSynthetic reports whether any post carries a synthetic marker.
func (o *FetchOutcome) ContainsSynthetic() bool {
	for _, p := range o.Posts {
		if p.IsSynthetic() {
			return true
		}
	}
	return false
}
