package simplecms

import "github.com/google/uuid"

// Cache key namespace. Keys are namespaced per query shape so a mutation can
// name the exact set of scopes it stales:
//
//	all:<kind>
//	byId:<kind>:<id>
//	bySlug:<kind>:<slug>
//	byOwner:<kind>:<ownerId>
//	aggregate:<kind>:<name>

// AllKey is the collection-wide list key for a kind.
func AllKey(kind Kind) string { return "all:" + string(kind) }

// IDKey is the single-record key by id.
func IDKey(kind Kind, id uuid.UUID) string { return "byId:" + string(kind) + ":" + id.String() }

// SlugKey is the single-record key by slug.
func SlugKey(kind Kind, slug string) string { return "bySlug:" + string(kind) + ":" + slug }

// OwnerKey is the owner-scoped list key.
func OwnerKey(kind Kind, ownerID uuid.UUID) string {
	return "byOwner:" + string(kind) + ":" + ownerID.String()
}

// AggregateKey is the key of a collection-wide aggregate.
func AggregateKey(kind Kind, name string) string {
	return "aggregate:" + string(kind) + ":" + name
}

// scopeSet accumulates the cache keys a mutation stales, deduplicated so a
// no-op rename does not invalidate the same slug key twice.
type scopeSet map[string]struct{}

func (s scopeSet) add(keys ...string) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

func (s scopeSet) keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// collectionScopes covers the scopes every mutation of a kind stales: the
// collection list, the kind's aggregates and the owner's listing.
func collectionScopes(spec KindSpec, ownerID uuid.UUID) scopeSet {
	s := scopeSet{}
	s.add(AllKey(spec.Kind))
	for _, name := range spec.Aggregates {
		s.add(AggregateKey(spec.Kind, name))
	}
	if ownerID != uuid.Nil {
		s.add(OwnerKey(spec.Kind, ownerID))
	}
	return s
}
