package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	appconfig "front50store/internal/config"
)

// DefaultMaxKeys caps a single listing page.
const DefaultMaxKeys = 1000

// ErrNotFound is returned when a bucket or object does not exist.
var ErrNotFound = errors.New("not found")

// BlobStore is a single bucket addressed by flat string keys.
type BlobStore interface {
	HeadBucket(ctx context.Context) error
	CreateBucket(ctx context.Context) error
	GetObject(ctx context.Context, key string) (*Object, error)
	PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, input ListInput) (*Page, error)
}

type Object struct {
	Key             string
	Body            []byte
	LastModified    time.Time
	ContentEncoding string
}

type PutOptions struct {
	ContentEncoding string
	ContentType     string
}

type ListInput struct {
	Prefix  string
	Marker  string
	MaxKeys int32
}

type ObjectSummary struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// Page is one listing result. NextMarker continues the listing while Truncated is set.
type Page struct {
	Objects    []ObjectSummary
	NextMarker string
	Truncated  bool
}

// Describer is implemented by backends that can name their bucket for status output.
type Describer interface {
	Bucket() string
	Backend() string
}

func NewFromConfig(ctx context.Context, cfg *appconfig.Config) (BlobStore, error) {
	switch cfg.Storage.Backend {
	case appconfig.BackendLocal:
		return NewLocalClient(cfg.Storage.LocalDir, cfg.S3.Bucket)
	case appconfig.BackendMinio:
		return NewMinioClient(cfg.S3)
	case appconfig.BackendS3, "":
		return NewS3Client(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func maxKeys(n int32) int32 {
	if n <= 0 || n > DefaultMaxKeys {
		return DefaultMaxKeys
	}
	return n
}
