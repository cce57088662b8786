package models

import "errors"

var (
	// ErrResourceExhausted rejects a request when memory pressure is critical.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrRenderFailure wraps any single renderer failure, including timeouts.
	ErrRenderFailure = errors.New("render failure")
	// ErrNotFound is returned for unknown artifact or file ids.
	ErrNotFound = errors.New("not found")
	// ErrStorage wraps failures writing or deleting artifact bytes.
	ErrStorage = errors.New("storage error")
	// ErrInvalidRequest rejects malformed generation requests.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrFormatUnavailable is returned when an artifact exists but does not
	// hold the requested format (never rendered, failed, or expired).
	ErrFormatUnavailable = errors.New("format unavailable")
	// ErrShuttingDown refuses new generations once shutdown has begun.
	ErrShuttingDown = errors.New("service is shutting down")
)
