// Package errors defines the sentinel error kinds shared across datacat's
// resource, parsing, storage, and embedding layers. Kinds are plain
// sentinel values wrapped with fmt.Errorf, not a custom type hierarchy;
// callers use errors.Is against the sentinels below.
package errors

import (
	"errors"

	"github.com/ternarybob/datacat/internal/models"
)

var (
	// ErrTransport marks a network, timeout, or protocol failure. Retried
	// per the configured backoff policy; surfaces as a FETCH stage
	// failure once attempts are exhausted.
	ErrTransport = errors.New("transport error")

	// ErrHTTP marks a non-retryable HTTP response status.
	ErrHTTP = errors.New("http error")

	// ErrParse marks malformed source content or missing required
	// fields. The owning dataset fails at PARSE; the pipeline continues.
	ErrParse = errors.New("parse error")

	// ErrStore marks an upsert failure on an individual record. The
	// surrounding bulk call continues; failed ids are reported in the
	// BulkResult.
	ErrStore = errors.New("store error")

	// ErrEmbedding marks an embedding inference or vector-store write
	// failure. Non-fatal to the owning dataset; it remains searchable by
	// keyword only.
	ErrEmbedding = errors.New("embedding error")

	// ErrValidation marks a domain-model invariant violation. Alias of
	// models.ErrValidation kept here so callers that only import this
	// package can still match on it.
	ErrValidation = models.ErrValidation

	// ErrNotAvailable marks an absent optional subsystem (vector store or
	// embedding service). Search degrades to keyword-only; RAG returns a
	// sentinel unavailable answer.
	ErrNotAvailable = errors.New("subsystem not available")
)

// Is reports whether err wraps target using the standard library's
// matching rules. Exported here purely so call sites can write
// errors.Is(...) without importing the standard library package under
// the same name twice.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
