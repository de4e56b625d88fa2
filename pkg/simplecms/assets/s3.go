package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// S3Config holds options for the S3 asset store.
type S3Config struct {
	Region          string // AWS region
	Bucket          string // bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // use path-style addressing (MinIO)
	URLPrefix       string // public URL prefix used by Resolve
	KeyPrefix       string // optional key prefix inside the bucket
}

// S3Store is an S3-compatible implementation of the simplecms.AssetStore
// interface. Uploads are spooled to local temp files by the upload layer and
// copied into the bucket by Store.
type S3Store struct {
	client    *s3.Client
	bucket    string
	urlPrefix string
	keyPrefix string
}

// NewS3 creates an S3 asset store.
func NewS3(ctx context.Context, config S3Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	return &S3Store{
		client:    s3.NewFromConfig(awsCfg, s3Options...),
		bucket:    config.Bucket,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
		keyPrefix: strings.Trim(config.KeyPrefix, "/"),
	}, nil
}

// Store copies the spooled upload into the bucket under its relative key and
// deletes the local spool file. The returned path is the object key without
// the configured prefix, matching the filesystem store's normalization.
func (s *S3Store) Store(ctx context.Context, file simplecms.UploadedFile) (string, error) {
	f, err := os.Open(file.StoredPath)
	if err != nil {
		return "", &simplecms.AssetError{Path: file.StoredPath, Op: "store", Err: err}
	}
	defer f.Close()

	rel := path.Join(path.Base(path.Dir(file.StoredPath)), path.Base(file.StoredPath))
	key := s.objectKey(rel)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if file.MimeType != "" {
		input.ContentType = aws.String(file.MimeType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", &simplecms.AssetError{Path: rel, Op: "store", Err: err}
	}

	f.Close()
	os.Remove(file.StoredPath)
	return rel, nil
}

// Remove deletes the object for a stored path. A missing key is not an
// error.
func (s *S3Store) Remove(ctx context.Context, relPath string) error {
	if relPath == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(relPath)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil
		}
		return &simplecms.AssetError{Path: relPath, Op: "remove", Err: err}
	}
	return nil
}

// Resolve returns the public URL of a stored path.
func (s *S3Store) Resolve(relPath string) string {
	if s.urlPrefix == "" {
		return s.objectKey(relPath)
	}
	return s.urlPrefix + "/" + s.objectKey(relPath)
}

// SaveUpload spools an incoming stream to a temp file under a per-kind
// folder so Store can copy it into the bucket.
func (s *S3Store) SaveUpload(ctx context.Context, folder, originalName, mimeType string, r io.Reader) (simplecms.UploadedFile, error) {
	dir := os.TempDir()
	spool := fmt.Sprintf("%s/%s", dir, folder)
	if err := os.MkdirAll(spool, 0755); err != nil {
		return simplecms.UploadedFile{}, &simplecms.AssetError{Path: spool, Op: "save", Err: err}
	}

	dst := fmt.Sprintf("%s/%s", spool, uniqueName(originalName))
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

func (s *S3Store) objectKey(relPath string) string {
	if s.keyPrefix == "" {
		return relPath
	}
	return s.keyPrefix + "/" + relPath
}
