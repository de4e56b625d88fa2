package simplecms

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for resource records. The
// storage layer is the final arbiter of slug uniqueness: Create and Update
// must return ErrSlugConflict when a (kind, slug) pair is already taken,
// regardless of what the allocator pre-checked.
type Repository interface {
	Create(ctx context.Context, res *Resource) error
	GetByID(ctx context.Context, kind Kind, id uuid.UUID) (*Resource, error)
	GetBySlug(ctx context.Context, kind Kind, slug string) (*Resource, error)
	List(ctx context.Context, kind Kind) ([]*Resource, error)
	ListByOwner(ctx context.Context, kind Kind, ownerID uuid.UUID) ([]*Resource, error)
	Update(ctx context.Context, res *Resource) error
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error

	// ListSlugs returns the live slugs in the collection equal to base or of
	// the form base-N, excluding the record with excludeID (uuid.Nil excludes
	// nothing). Advisory input for the allocator's pre-check.
	ListSlugs(ctx context.Context, kind Kind, base string, excludeID uuid.UUID) ([]string, error)

	// CountByCategory groups live records of the kind by their category field.
	CountByCategory(ctx context.Context, kind Kind) ([]CategoryCount, error)
}

// AssetStore manages the on-disk (or remote) lifecycle of uploaded files.
type AssetStore interface {
	// Store normalizes an uploaded file into a root-relative, forward-slash
	// path and makes it durable under that path. The returned path is what
	// records reference.
	Store(ctx context.Context, file UploadedFile) (string, error)

	// Remove deletes a previously stored path. Idempotent and advisory:
	// removing a nonexistent path is not an error.
	Remove(ctx context.Context, relPath string) error

	// Resolve joins a stored relative path back to its absolute location
	// using the same root-join rule Store used to derive it.
	Resolve(relPath string) string
}

// Cache is the process-wide read-through cache in front of the repository.
// Implementations must be safe for concurrent use and must fail open: a
// backend problem is a miss, never a read failure.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any)
	Delete(ctx context.Context, key string)
	DeleteAll(ctx context.Context, keys []string)
}

// EventSink receives resource lifecycle events. Publish is fire-and-forget
// from the service's perspective; a sink error never fails the mutation.
type EventSink interface {
	Publish(ctx context.Context, event string, payload any) error
}
