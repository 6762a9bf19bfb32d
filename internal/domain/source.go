package domain

// FetchSource identifies which stage of the source chain produced a fetch outcome.
type FetchSource string

const (
	// SourcePrimaryAPI is the identifier-based X timeline fetch.
	SourcePrimaryAPI FetchSource = "primary_api"
	// SourceSearchAPI is the query-based X search fetch (from:<handle>).
	SourceSearchAPI FetchSource = "search_api"
	// SourceWebSearch is the open web-search fetch for real posts.
	SourceWebSearch FetchSource = "web_search"
	// SourceNone means every stage failed or was skipped.
	SourceNone FetchSource = "none"
)

// String returns the string representation of FetchSource.
func (s FetchSource) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s FetchSource) IsValid() bool {
	switch s {
	case SourcePrimaryAPI, SourceSearchAPI, SourceWebSearch, SourceNone:
		return true
	}
	return false
}

// IsReal reports whether the source delivered real account data.
func (s FetchSource) IsReal() bool {
	return s == SourcePrimaryAPI || s == SourceSearchAPI || s == SourceWebSearch
}

// SourceOrigin identifies how a candidate account was discovered.
type SourceOrigin string

const (
	OriginKeyword SourceOrigin = "keyword"
	OriginRandom  SourceOrigin = "random"
	OriginHybrid  SourceOrigin = "hybrid"
)

// String returns the string representation of SourceOrigin.
func (o SourceOrigin) String() string {
	return string(o)
}

// IsValid checks if the origin is a valid value.
func (o SourceOrigin) IsValid() bool {
	return o == OriginKeyword || o == OriginRandom || o == OriginHybrid
}
