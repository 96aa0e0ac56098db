package liverepo

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/slok/tierd/internal/aptly"
	"github.com/slok/tierd/internal/log"
)

//go:embed assets/index.html
var defaultIndexPage []byte

const (
	PublicKeyObject = "public-key.gpg"
	IndexObject     = "index.html"
)

// ObjectStorage is the bucket storage the live repository is served from.
type ObjectStorage interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
}

// UploaderConfig is the configuration for the live repository assets uploader.
type UploaderConfig struct {
	Bucket string
	Prefix string
	// PublicKeyPath is the armored or binary public signing key file.
	PublicKeyPath string
	// IndexPagePath overrides the bundled index page.
	IndexPagePath string
	Storage       ObjectStorage
	Logger        log.Logger
}

func (c *UploaderConfig) defaults() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}

	if c.PublicKeyPath == "" {
		return fmt.Errorf("public key path is required")
	}

	if c.Storage == nil {
		return fmt.Errorf("object storage is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "liverepo.Uploader"})

	return nil
}

// Uploader uploads the static files served next to the published repository.
type Uploader struct {
	cfg UploaderConfig
}

// NewUploader returns a new live repository assets uploader.
func NewUploader(cfg UploaderConfig) (*Uploader, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Uploader{cfg: cfg}, nil
}

// UploadMissing uploads the public key and the index page when they are not on the bucket.
func (u *Uploader) UploadMissing(ctx context.Context) error {
	u.cfg.Logger.Infof("Uploading live repository files if missing")

	key, err := os.ReadFile(u.cfg.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("could not read public key: %w", err)
	}
	if err := u.uploadIfMissing(ctx, PublicKeyObject, key, "application/pgp-keys"); err != nil {
		return err
	}

	index := defaultIndexPage
	if u.cfg.IndexPagePath != "" {
		index, err = os.ReadFile(u.cfg.IndexPagePath)
		if err != nil {
			return fmt.Errorf("could not read index page: %w", err)
		}
	}
	if err := u.uploadIfMissing(ctx, IndexObject, index, "text/html; charset=utf-8"); err != nil {
		return err
	}

	return nil
}

func (u *Uploader) uploadIfMissing(ctx context.Context, name string, data []byte, contentType string) error {
	key := ObjectKey(u.cfg.Prefix, name)

	exists, err := u.cfg.Storage.Exists(ctx, u.cfg.Bucket, key)
	if err != nil {
		return fmt.Errorf("could not check %s: %w", key, err)
	}
	if exists {
		u.cfg.Logger.Debugf("%s already on bucket %s", key, u.cfg.Bucket)
		return nil
	}

	if err := u.cfg.Storage.Put(ctx, u.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return fmt.Errorf("could not upload %s: %w", key, err)
	}
	u.cfg.Logger.Infof("Uploaded %s to bucket %s", key, u.cfg.Bucket)

	return nil
}

// ObjectKey returns the bucket key of a file under the prefix.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" || prefix == "." {
		return name
	}
	return prefix + "/" + name
}

// MinioStorage is an S3 compatible ObjectStorage.
type MinioStorage struct {
	client *minio.Client
}

// NewMinioStorage returns an ObjectStorage for the S3 endpoint aptly publishes to.
func NewMinioStorage(s3 aptly.S3Endpoint) (*MinioStorage, error) {
	endpoint, secure := s3.Endpoint, true
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "http://"), false
	}
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3.AccessKeyID, s3.SecretAccessKey, ""),
		Secure: secure,
		Region: s3.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create s3 client: %w", err)
	}

	return &MinioStorage{client: client}, nil
}

func (m *MinioStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (m *MinioStorage) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}
