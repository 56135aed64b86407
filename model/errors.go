package model

import "errors"

var (
	// ErrNoteNotFound is returned for an unknown note rid. Never retried.
	ErrNoteNotFound = errors.New("note not found")
	// ErrExternalUnavailable is returned when the classifier or embedder
	// cannot be reached. Link-suggestion calls fail closed on it.
	ErrExternalUnavailable = errors.New("external service unavailable")
	// ErrSuggestionTimeout is returned when a classifier call exceeds its bound.
	ErrSuggestionTimeout = errors.New("suggestion call timed out")
	// ErrInvalidRelation marks a proposal outside the closed relation taxonomy.
	ErrInvalidRelation = errors.New("invalid relation")
	// ErrConsolidationInFlight is returned when a consolidation run for the
	// same note is already in progress.
	ErrConsolidationInFlight = errors.New("consolidation already in flight for note")
)
