package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates the source document is unreadable or its format is unsupported
	ErrExtraction = errors.New("extraction failed")

	// ErrNoContent indicates extraction produced no text or chunking yielded zero chunks
	ErrNoContent = errors.New("no content")

	// ErrEmbeddingFailure indicates the embedding service failed or returned no vector
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrIndexUnavailable indicates the vector index could not be reached or rejected the call
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrDimensionMismatch indicates the embedding model and the index disagree on vector size
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNoRelevantContext indicates search found nothing above the threshold
	// for a consumer that cannot proceed without context
	ErrNoRelevantContext = errors.New("no relevant context")

	// ErrIngestInProgress indicates another ingestion holds the document lock
	ErrIngestInProgress = errors.New("ingestion already in progress")

	// ErrNotEnoughTopics indicates topic extraction returned fewer than two topics
	ErrNotEnoughTopics = errors.New("not enough topics")

	// ErrUnsupportedLanguage indicates the text is not in a supported language
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates an optional backing service is not configured or unreachable
	ErrServiceUnavailable = errors.New("service unavailable")
)
