package simplecms

import (
	"context"

	"github.com/google/uuid"
)

// Service is the resource lifecycle controller, parameterized over the
// registered kind descriptors. One implementation serves all four kinds.
//
// Create for a kind with DeferredCreate set returns a non-authoritative
// preview before the record is durable; slug resolution, persistence, cache
// invalidation and event publishing finish in a detached background task
// whose failures are only logged. Reads between the acknowledgement and the
// background publish legitimately miss the new record.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Resource, error)
	Update(ctx context.Context, req UpdateRequest) (*Resource, error)
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error

	Get(ctx context.Context, kind Kind, id uuid.UUID) (*Resource, error)
	GetBySlug(ctx context.Context, kind Kind, slug string) (*Resource, error)
	List(ctx context.Context, kind Kind) ([]*Resource, error)
	ListByOwner(ctx context.Context, kind Kind, ownerID uuid.UUID) ([]*Resource, error)
	CategoryCounts(ctx context.Context, kind Kind) ([]CategoryCount, error)
}
