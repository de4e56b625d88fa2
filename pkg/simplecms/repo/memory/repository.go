// Package memory provides an in-memory simplecms.Repository, used in tests
// and single-process deployments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

type slugKey struct {
	kind simplecms.Kind
	slug string
}

// Repository implements simplecms.Repository using in-memory storage. The
// slug index enforces the same uniqueness constraint a database index
// would, so commit-time conflicts surface here exactly like in postgres.
type Repository struct {
	mu        sync.RWMutex
	resources map[uuid.UUID]*simplecms.Resource
	bySlug    map[slugKey]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		resources: make(map[uuid.UUID]*simplecms.Resource),
		bySlug:    make(map[slugKey]uuid.UUID),
	}
}

func (r *Repository) Create(ctx context.Context, res *simplecms.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slugKey{res.Kind, res.Slug}
	if _, taken := r.bySlug[key]; taken {
		return simplecms.ErrSlugConflict
	}

	r.resources[res.ID] = res.Clone()
	r.bySlug[key] = res.ID
	return nil
}

func (r *Repository) GetByID(ctx context.Context, kind simplecms.Kind, id uuid.UUID) (*simplecms.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, exists := r.resources[id]
	if !exists || res.Kind != kind {
		return nil, simplecms.ErrNotFound
	}
	return res.Clone(), nil
}

func (r *Repository) GetBySlug(ctx context.Context, kind simplecms.Kind, slug string) (*simplecms.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.bySlug[slugKey{kind, slug}]
	if !exists {
		return nil, simplecms.ErrNotFound
	}
	return r.resources[id].Clone(), nil
}

func (r *Repository) List(ctx context.Context, kind simplecms.Kind) ([]*simplecms.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simplecms.Resource
	for _, res := range r.resources {
		if res.Kind == kind {
			result = append(result, res.Clone())
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *Repository) ListByOwner(ctx context.Context, kind simplecms.Kind, ownerID uuid.UUID) ([]*simplecms.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simplecms.Resource
	for _, res := range r.resources {
		if res.Kind == kind && res.OwnerID == ownerID {
			result = append(result, res.Clone())
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *Repository) Update(ctx context.Context, res *simplecms.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.resources[res.ID]
	if !exists || current.Kind != res.Kind {
		return simplecms.ErrNotFound
	}

	if res.Slug != current.Slug {
		key := slugKey{res.Kind, res.Slug}
		if owner, taken := r.bySlug[key]; taken && owner != res.ID {
			return simplecms.ErrSlugConflict
		}
		delete(r.bySlug, slugKey{current.Kind, current.Slug})
		r.bySlug[key] = res.ID
	}

	r.resources[res.ID] = res.Clone()
	return nil
}

func (r *Repository) Delete(ctx context.Context, kind simplecms.Kind, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, exists := r.resources[id]
	if !exists || res.Kind != kind {
		return simplecms.ErrNotFound
	}
	delete(r.bySlug, slugKey{res.Kind, res.Slug})
	delete(r.resources, id)
	return nil
}

func (r *Repository) ListSlugs(ctx context.Context, kind simplecms.Kind, base string, excludeID uuid.UUID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var slugs []string
	for key, id := range r.bySlug {
		if key.kind != kind || id == excludeID {
			continue
		}
		if key.slug == base || strings.HasPrefix(key.slug, base+"-") {
			slugs = append(slugs, key.slug)
		}
	}
	return slugs, nil
}

func (r *Repository) CountByCategory(ctx context.Context, kind simplecms.Kind) ([]simplecms.CategoryCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, res := range r.resources {
		if res.Kind == kind {
			counts[res.Fields["category"]]++
		}
	}

	result := make([]simplecms.CategoryCount, 0, len(counts))
	for category, count := range counts {
		result = append(result, simplecms.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Category < result[j].Category
	})
	return result, nil
}

func sortNewestFirst(list []*simplecms.Resource) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
