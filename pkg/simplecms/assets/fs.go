// Package assets provides AssetStore implementations for uploaded images:
// a local filesystem store mirroring the original disk layout, and an
// S3-compatible store for object storage deployments. Both normalize stored
// paths to root-relative, forward-slash form so records stay portable
// between backends.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// FSConfig holds options for the filesystem asset store.
type FSConfig struct {
	BaseDir string // asset root; stored paths are relative to it
}

// FSStore is a filesystem implementation of the simplecms.AssetStore
// interface. Files live under BaseDir in per-kind folders.
type FSStore struct {
	baseDir string
}

// NewFS creates a filesystem asset store rooted at config.BaseDir.
func NewFS(config FSConfig) (*FSStore, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	abs, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: abs}, nil
}

// Store normalizes the path the upload layer wrote the file to into a
// root-relative, forward-slash path. The file must already live under the
// store's base directory; Store does not move bytes.
func (s *FSStore) Store(ctx context.Context, file simplecms.UploadedFile) (string, error) {
	abs, err := filepath.Abs(file.StoredPath)
	if err != nil {
		return "", &simplecms.AssetError{Path: file.StoredPath, Op: "store", Err: err}
	}
	rel, err := filepath.Rel(s.baseDir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", &simplecms.AssetError{
			Path: file.StoredPath,
			Op:   "store",
			Err:  errors.New("file is outside the asset root"),
		}
	}
	if _, err := os.Stat(abs); err != nil {
		return "", &simplecms.AssetError{Path: file.StoredPath, Op: "store", Err: err}
	}
	return filepath.ToSlash(rel), nil
}

// Remove deletes a stored path. Removing a path that does not exist is not
// an error: cleanup is advisory and must never abort the caller's mutation.
func (s *FSStore) Remove(ctx context.Context, relPath string) error {
	if relPath == "" {
		return nil
	}
	err := os.Remove(s.Resolve(relPath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &simplecms.AssetError{Path: relPath, Op: "remove", Err: err}
	}
	return nil
}

// Resolve joins a stored relative path back to its absolute location.
func (s *FSStore) Resolve(relPath string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(relPath))
}

// SaveUpload plays the upload layer's role for the filesystem store: it
// writes an incoming stream into the per-kind folder under a unique name and
// returns the handle Store expects. The caller is responsible for the image
// MIME check before invoking the lifecycle service.
func (s *FSStore) SaveUpload(ctx context.Context, folder, originalName, mimeType string, r io.Reader) (simplecms.UploadedFile, error) {
	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return simplecms.UploadedFile{}, &simplecms.AssetError{Path: dir, Op: "save", Err: err}
	}

	name := uniqueName(originalName)
	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return simplecms.UploadedFile{}, &simplecms.AssetError{Path: dst, Op: "save", Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return simplecms.UploadedFile{}, &simplecms.AssetError{Path: dst, Op: "save", Err: err}
	}

	return simplecms.UploadedFile{
		OriginalName: originalName,
		StoredPath:   dst,
		MimeType:     mimeType,
	}, nil
}

// uniqueName builds a timestamp-random file name keeping the original
// extension, the naming the original upload middleware used.
func uniqueName(originalName string) string {
	return fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Int63n(1e9), filepath.Ext(originalName))
}
