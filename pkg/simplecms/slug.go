package simplecms

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	gslug "github.com/gosimple/slug"
)

// Slugify derives the base slug for a title: lowercase, transliterated,
// ASCII-safe, hyphen-delimited with no leading, trailing or duplicate
// hyphens. Returns "" for titles that normalize to nothing.
func Slugify(title string) string {
	return gslug.Make(strings.TrimSpace(title))
}

// SlugAllocator derives collection-unique slugs from titles. Its pre-check
// against existing slugs is advisory; the repository's uniqueness constraint
// is authoritative and a conflict at commit is retried by the caller.
type SlugAllocator struct {
	repo Repository
}

// NewSlugAllocator creates an allocator backed by the given repository.
func NewSlugAllocator(repo Repository) *SlugAllocator {
	return &SlugAllocator{repo: repo}
}

// Allocate returns base when the collection has no slug matching
// ^base(-\d+)?$, otherwise base-<max(suffixes)+1> where an unsuffixed match
// counts as suffix 0. excludeID keeps a record from colliding with itself on
// rename; pass uuid.Nil on create.
//
// The caller must validate a non-empty title first; an empty base is
// reported as a validation error here only as a backstop.
func (a *SlugAllocator) Allocate(ctx context.Context, kind Kind, title string, excludeID uuid.UUID) (string, error) {
	base := Slugify(title)
	if base == "" {
		return "", &ValidationError{Field: "title", Reason: "empty after normalization"}
	}

	existing, err := a.repo.ListSlugs(ctx, kind, base, excludeID)
	if err != nil {
		return "", err
	}

	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(base) + `(-\d+)?$`)
	if err != nil {
		return "", err
	}

	max := -1
	for _, s := range existing {
		m := pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n := 0
		if m[1] != "" {
			n, err = strconv.Atoi(m[1][1:])
			if err != nil {
				continue
			}
		}
		if n > max {
			max = n
		}
	}

	if max < 0 {
		return base, nil
	}
	return base + "-" + strconv.Itoa(max+1), nil
}
