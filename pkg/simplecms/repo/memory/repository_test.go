package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
)

func newResource(kind simplecms.Kind, slug string) *simplecms.Resource {
	now := time.Now().UTC()
	return &simplecms.Resource{
		ID:        uuid.New(),
		Kind:      kind,
		Slug:      slug,
		Title:     slug,
		Fields:    map[string]string{"category": "General"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	res := newResource(simplecms.KindBlog, "hello")
	require.NoError(t, repo.Create(ctx, res))

	got, err := repo.GetByID(ctx, simplecms.KindBlog, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Slug, got.Slug)

	got, err = repo.GetBySlug(ctx, simplecms.KindBlog, "hello")
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = repo.GetByID(ctx, simplecms.KindProject, res.ID)
	assert.ErrorIs(t, err, simplecms.ErrNotFound, "kind scoping applies to lookups")
}

func TestCreateSlugConflict(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newResource(simplecms.KindBlog, "taken")))

	err := repo.Create(ctx, newResource(simplecms.KindBlog, "taken"))
	assert.ErrorIs(t, err, simplecms.ErrSlugConflict)

	// The same slug in another collection is fine.
	assert.NoError(t, repo.Create(ctx, newResource(simplecms.KindProject, "taken")))
}

func TestCreateStoresAClone(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	res := newResource(simplecms.KindBlog, "immutable")
	require.NoError(t, repo.Create(ctx, res))

	res.Fields["category"] = "mutated"

	got, err := repo.GetByID(ctx, simplecms.KindBlog, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "General", got.Fields["category"])
}

func TestUpdate(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	t.Run("reindexes a changed slug", func(t *testing.T) {
		res := newResource(simplecms.KindBlog, "before")
		require.NoError(t, repo.Create(ctx, res))

		res.Slug = "after"
		require.NoError(t, repo.Update(ctx, res))

		_, err := repo.GetBySlug(ctx, simplecms.KindBlog, "before")
		assert.ErrorIs(t, err, simplecms.ErrNotFound)

		got, err := repo.GetBySlug(ctx, simplecms.KindBlog, "after")
		require.NoError(t, err)
		assert.Equal(t, res.ID, got.ID)
	})

	t.Run("conflict on a taken slug", func(t *testing.T) {
		a := newResource(simplecms.KindBlog, "slug-a")
		b := newResource(simplecms.KindBlog, "slug-b")
		require.NoError(t, repo.Create(ctx, a))
		require.NoError(t, repo.Create(ctx, b))

		b.Slug = "slug-a"
		assert.ErrorIs(t, repo.Update(ctx, b), simplecms.ErrSlugConflict)
	})

	t.Run("keeping the own slug is not a conflict", func(t *testing.T) {
		res := newResource(simplecms.KindBlog, "own-slug")
		require.NoError(t, repo.Create(ctx, res))

		res.Title = "changed"
		assert.NoError(t, repo.Update(ctx, res))
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, repo.Update(ctx, newResource(simplecms.KindBlog, "ghost")), simplecms.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	res := newResource(simplecms.KindBlog, "doomed")
	require.NoError(t, repo.Create(ctx, res))
	require.NoError(t, repo.Delete(ctx, simplecms.KindBlog, res.ID))

	_, err := repo.GetByID(ctx, simplecms.KindBlog, res.ID)
	assert.ErrorIs(t, err, simplecms.ErrNotFound)

	// The slug is released for reuse.
	assert.NoError(t, repo.Create(ctx, newResource(simplecms.KindBlog, "doomed")))

	assert.ErrorIs(t, repo.Delete(ctx, simplecms.KindBlog, uuid.New()), simplecms.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	older := newResource(simplecms.KindBlog, "older")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := newResource(simplecms.KindBlog, "newer")

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, newResource(simplecms.KindProject, "unrelated")))

	list, err := repo.List(ctx, simplecms.KindBlog)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Slug)
	assert.Equal(t, "older", list[1].Slug)
}

func TestListByOwner(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	owner := uuid.New()

	mine := newResource(simplecms.KindBlog, "mine")
	mine.OwnerID = owner
	require.NoError(t, repo.Create(ctx, mine))
	require.NoError(t, repo.Create(ctx, newResource(simplecms.KindBlog, "nobodys")))

	list, err := repo.ListByOwner(ctx, simplecms.KindBlog, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Slug)
}

func TestListSlugs(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	foo := newResource(simplecms.KindBlog, "foo")
	require.NoError(t, repo.Create(ctx, foo))
	require.NoError(t, repo.Create(ctx, newResource(simplecms.KindBlog, "foo-2")))
	require.NoError(t, repo.Create(ctx, newResource(simplecms.KindBlog, "foobar")))
	require.NoError(t, repo.Create(ctx, newResource(simplecms.KindProject, "foo")))

	slugs, err := repo.ListSlugs(ctx, simplecms.KindBlog, "foo", uuid.Nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"foo", "foo-2"}, slugs)

	slugs, err = repo.ListSlugs(ctx, simplecms.KindBlog, "foo", foo.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"foo-2"}, slugs)
}

func TestCountByCategory(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	add := func(slug, category string) {
		res := newResource(simplecms.KindTrustedClient, slug)
		res.Fields["category"] = category
		require.NoError(t, repo.Create(ctx, res))
	}
	add("a", "Steel")
	add("b", "Steel")
	add("c", "Glass")

	counts, err := repo.CountByCategory(ctx, simplecms.KindTrustedClient)
	require.NoError(t, err)
	assert.Equal(t, []simplecms.CategoryCount{
		{Category: "Glass", Count: 1},
		{Category: "Steel", Count: 2},
	}, counts)
}
