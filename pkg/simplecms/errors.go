package simplecms

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrNotFound indicates no live record exists for the id or slug.
	ErrNotFound = errors.New("resource not found")

	// ErrSlugConflict indicates the storage layer rejected a slug that was
	// already taken at commit time. Retryable with a re-allocated slug.
	ErrSlugConflict = errors.New("slug already exists")

	// ErrUnknownKind indicates an unregistered resource kind.
	ErrUnknownKind = errors.New("unknown resource kind")

	// ErrUnknownAggregate indicates the kind does not serve the aggregate.
	ErrUnknownAggregate = errors.New("unknown aggregate")
)

// ValidationError reports missing or malformed required input. Terminal for
// the operation, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ResourceError wraps a failure of a lifecycle operation with its context.
type ResourceError struct {
	Kind Kind
	ID   uuid.UUID
	Op   string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s operation %s failed for %s: %v", e.Kind, e.Op, e.ID, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// AssetError reports a store or remove failure on the asset store. Store
// failures are terminal for the surrounding mutation; remove failures are
// advisory and only logged.
type AssetError struct {
	Path string
	Op   string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}
