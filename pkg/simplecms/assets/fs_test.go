package assets_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/assets"
)

func newStore(t *testing.T) *assets.FSStore {
	t.Helper()
	store, err := assets.NewFS(assets.FSConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestNewFSRequiresBaseDir(t *testing.T) {
	_, err := assets.NewFS(assets.FSConfig{})
	assert.Error(t, err)
}

func TestSaveUploadAndStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	uf, err := store.SaveUpload(ctx, "blogImages", "photo.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "photo.png", uf.OriginalName)
	assert.Equal(t, ".png", filepath.Ext(uf.StoredPath), "unique name keeps the extension")

	rel, err := store.Store(ctx, uf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "blogImages/"), "stored path is root-relative with forward slashes: %s", rel)
	assert.NotContains(t, rel, "\\")

	data, err := os.ReadFile(store.Resolve(rel))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSaveUploadNamesAreUnique(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a, err := store.SaveUpload(ctx, "blogImages", "photo.png", "image/png", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := store.SaveUpload(ctx, "blogImages", "photo.png", "image/png", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.StoredPath, b.StoredPath)
}

func TestStoreRejectsPathsOutsideRoot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "escape.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	_, err := store.Store(ctx, simplecms.UploadedFile{StoredPath: outside})
	require.Error(t, err)

	var assetErr *simplecms.AssetError
	assert.ErrorAs(t, err, &assetErr)
}

func TestStoreRejectsMissingFile(t *testing.T) {
	store := newStore(t)

	missing := store.Resolve("blogImages/missing.png")
	_, err := store.Store(context.Background(), simplecms.UploadedFile{StoredPath: missing})
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	uf, err := store.SaveUpload(ctx, "blogImages", "photo.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	rel, err := store.Store(ctx, uf)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, rel))
	_, statErr := os.Stat(store.Resolve(rel))
	assert.True(t, os.IsNotExist(statErr))

	// Removing again, or removing something that never existed, is fine.
	assert.NoError(t, store.Remove(ctx, rel))
	assert.NoError(t, store.Remove(ctx, "blogImages/never-there.png"))
	assert.NoError(t, store.Remove(ctx, ""))
}
