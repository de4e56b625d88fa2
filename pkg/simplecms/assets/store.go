package assets

import (
	"context"
	"io"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Store combines the lifecycle-facing AssetStore contract with the
// upload-layer receiver both implementations in this package provide.
type Store interface {
	simplecms.AssetStore

	// SaveUpload receives an incoming multipart stream into the per-kind
	// folder and returns the handle the lifecycle service's Store expects.
	SaveUpload(ctx context.Context, folder, originalName, mimeType string, r io.Reader) (simplecms.UploadedFile, error)
}

var (
	_ Store = (*FSStore)(nil)
	_ Store = (*S3Store)(nil)
)
