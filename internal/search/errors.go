package search

import "errors"

var (
	// ErrMissingAPIKey is returned when a required API key is not provided.
	ErrMissingAPIKey = errors.New("search: API key is required")

	// ErrMissingSearchID is returned when a required search engine ID is not provided.
	ErrMissingSearchID = errors.New("search: search ID is required")

	// ErrUnsupportedProvider is returned when an unsupported provider type is specified.
	ErrUnsupportedProvider = errors.New("search: unsupported provider")

	// ErrNoResults names the empty-result case. No provider in this package
	// returns it: an empty search yields an empty slice and a nil error.
	ErrNoResults = errors.New("search: no results found")
)
