package model

// ScopeKind classifies the geographic intent detected in a query.
type ScopeKind string

const (
	ScopeCountry       ScopeKind = "country"
	ScopeRegion        ScopeKind = "region"
	ScopeInternational ScopeKind = "international"
	ScopeDefault       ScopeKind = "default"
)

// ScopeBreadth is the search breadth implied by a scope kind.
type ScopeBreadth string

const (
	BreadthNational      ScopeBreadth = "national"
	BreadthRegional      ScopeBreadth = "regional"
	BreadthInternational ScopeBreadth = "international"
	BreadthLocalPlusIntl ScopeBreadth = "local_plus_international"
)

// GeographicScope is computed once per query from keyword matching and is a
// read-only input to the prompt builder.
type GeographicScope struct {
	Kind       ScopeKind    `json:"kind"`
	LocationID string       `json:"location_id"`
	Breadth    ScopeBreadth `json:"breadth"`
}
