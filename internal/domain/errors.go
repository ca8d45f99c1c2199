package domain

import "errors"

var (
	// ErrInvalidFilter signals malformed filter input (bad geo bounds, unparsable range value).
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidSort signals a malformed sort expression.
	ErrInvalidSort = errors.New("invalid sort")
	// ErrInvalidStrategy signals an unknown merge strategy.
	ErrInvalidStrategy = errors.New("invalid merge strategy")
	// ErrUnknownCollection signals a collection name absent from configuration.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrPrimaryQueryFailed signals that the primary query of a fan-out batch failed.
	// Auxiliary failures are reported as per-field diagnostics instead.
	ErrPrimaryQueryFailed = errors.New("primary query failed")
	// ErrAllCollectionsFailed signals that every collection in a federated search failed.
	ErrAllCollectionsFailed = errors.New("all collection queries failed")
	// ErrNoCollections signals a federated search with an empty collection list.
	ErrNoCollections = errors.New("no collections requested")
)
