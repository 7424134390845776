// Package objects maps typed, audited platform objects onto a flat-keyed blob
// store. Each object lives at root/group/lowercased-key/metadata-file.
//
// Every operation returns an explicit error. Store failures are logged with
// the object group and key and then returned; nothing is swallowed. Reads,
// deletes, bucket checks and listing pages are retried with backoff; uploads
// are not. Each backend call is bounded by a timeout and reports ErrTimeout
// when it expires.
package objects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appconfig "front50store/internal/config"
	"front50store/internal/identity"
	"front50store/internal/storage"
)

type Options struct {
	RootFolder     string
	Compression    string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	PageSize       int32
	Retry          RetryPolicy
	Logger         zerolog.Logger
	Metrics        *Metrics
}

// OptionsFromConfig derives adapter options from the loaded configuration.
func OptionsFromConfig(cfg *appconfig.Config, logger zerolog.Logger, metrics *Metrics) Options {
	return Options{
		RootFolder:     cfg.S3.RootFolder,
		Compression:    cfg.Storage.Compression,
		RequestTimeout: cfg.RequestTimeout(),
		UploadTimeout:  cfg.UploadTimeout(),
		PageSize:       storage.DefaultMaxKeys,
		Retry: RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.RetryInitialInterval(),
			MaxInterval:     cfg.RetryMaxInterval(),
		},
		Logger:  logger,
		Metrics: metrics,
	}
}

// Service is safe for concurrent use; it holds no mutable state beyond the
// backend handle it was given.
type Service struct {
	store   storage.BlobStore
	root    string
	codec   *Codec
	opts    Options
	logger  zerolog.Logger
	metrics *Metrics
}

func New(store storage.BlobStore, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	codec, err := NewCodec(opts.Compression)
	if err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 || opts.PageSize > storage.DefaultMaxKeys {
		opts.PageSize = storage.DefaultMaxKeys
	}
	return &Service{
		store:   store,
		root:    strings.Trim(opts.RootFolder, "/"),
		codec:   codec,
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "objects").Logger(),
		metrics: opts.Metrics,
	}, nil
}

func (s *Service) Close() error {
	return s.codec.Close()
}

func (s *Service) RootFolder() string { return s.root }

// PhysicalKey returns the blob key an object of type t is stored under.
func (s *Service) PhysicalKey(t ObjectType, logicalKey string) string {
	return BuildPhysicalKey(s.root, t, logicalKey)
}

// SupportsVersioning is always false; object history is not kept.
func (s *Service) SupportsVersioning() bool { return false }

// EnsureBucketExists creates the bucket when the existence check reports it
// missing. Any other check failure is returned as is.
func (s *Service) EnsureBucketExists(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe("ensure_bucket", "", start, err) }()

	err = s.opts.Retry.run(ctx, func() error {
		return s.withTimeout(ctx, s.opts.RequestTimeout, s.store.HeadBucket)
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error().Err(err).Str("bucket", s.bucketName()).Msg("bucket existence check failed")
		return err
	}

	s.logger.Info().Str("bucket", s.bucketName()).Msg("creating bucket")
	err = s.withTimeout(ctx, s.opts.RequestTimeout, s.store.CreateBucket)
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucketName()).Msg("bucket creation failed")
	}
	return err
}

// LoadObject fetches and decodes the object at key. The returned value's
// LastModified comes from the backend's last-modified timestamp.
func (s *Service) LoadObject(ctx context.Context, t ObjectType, logicalKey string) (item Timestamped, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("load", t.Group, start, err) }()

	if err := ValidateLogicalKey(t, logicalKey); err != nil {
		return nil, err
	}
	key := s.PhysicalKey(t, logicalKey)

	var obj *storage.Object
	err = s.opts.Retry.run(ctx, func() error {
		return s.withTimeout(ctx, s.opts.RequestTimeout, func(ctx context.Context) error {
			var getErr error
			obj, getErr = s.store.GetObject(ctx, key)
			return getErr
		})
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w (key: %s)", ErrNotFound, logicalKey)
		}
		s.logError(err, "load", t, key)
		return nil, err
	}

	item = t.NewValue()
	if err := s.codec.Decode(obj.Body, obj.ContentEncoding, item); err != nil {
		decodeErr := &DeserializationError{Key: logicalKey, Err: err}
		s.logError(decodeErr, "load", t, key)
		return nil, decodeErr
	}
	item.Stamped().LastModified = obj.LastModified.UnixMilli()
	return item, nil
}

// Load is LoadObject with the result asserted to T.
func Load[T Timestamped](ctx context.Context, s *Service, t ObjectType, logicalKey string) (T, error) {
	var zero T
	item, err := s.LoadObject(ctx, t, logicalKey)
	if err != nil {
		return zero, err
	}
	typed, ok := item.(T)
	if !ok {
		return zero, &DeserializationError{
			Key: logicalKey,
			Err: fmt.Errorf("object type %s decodes to %T, not %T", t.Name, item, zero),
		}
	}
	return typed, nil
}

// StoreObject stamps the caller's identity on item, serializes it and waits
// for the upload to complete or UploadTimeout to expire.
func (s *Service) StoreObject(ctx context.Context, t ObjectType, logicalKey string, item Timestamped) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe("store", t.Group, start, err) }()

	if err := ValidateLogicalKey(t, logicalKey); err != nil {
		return err
	}
	if item == nil {
		return errors.New("object to store is nil")
	}
	key := s.PhysicalKey(t, logicalKey)

	item.Stamped().LastModifiedBy = identity.UserOrAnonymous(ctx)
	data, encoding, err := s.codec.Encode(item)
	if err != nil {
		err = fmt.Errorf("serialize object (key: %s): %w", logicalKey, err)
		s.logError(err, "store", t, key)
		return err
	}

	err = s.withTimeout(ctx, s.opts.UploadTimeout, func(ctx context.Context) error {
		return s.store.PutObject(ctx, key, data, storage.PutOptions{
			ContentEncoding: encoding,
			ContentType:     contentTypeJSON,
		})
	})
	if err != nil {
		s.logError(err, "store", t, key)
		return fmt.Errorf("store %s object %s: %w", t.Group, key, err)
	}

	s.logger.Debug().
		Str("group", t.Group).
		Str("key", key).
		Int("bytes", len(data)).
		Str("last_modified_by", item.Stamped().LastModifiedBy).
		Msg("object stored")
	return nil
}

// DeleteObject removes the object at key. Deleting a missing object succeeds.
func (s *Service) DeleteObject(ctx context.Context, t ObjectType, logicalKey string) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe("delete", t.Group, start, err) }()

	if err := ValidateLogicalKey(t, logicalKey); err != nil {
		return err
	}
	key := s.PhysicalKey(t, logicalKey)

	err = s.opts.Retry.run(ctx, func() error {
		return s.withTimeout(ctx, s.opts.RequestTimeout, func(ctx context.Context) error {
			return s.store.DeleteObject(ctx, key)
		})
	})
	if err != nil {
		s.logError(err, "delete", t, key)
		return fmt.Errorf("delete %s object %s: %w", t.Group, key, err)
	}
	s.logger.Debug().Str("group", t.Group).Str("key", key).Msg("object deleted")
	return nil
}

// ListObjectKeys drains every listing page under the type's folder and maps
// each metadata file back to its logical key with its last-modified millis.
// Other blobs under the folder are skipped.
func (s *Service) ListObjectKeys(ctx context.Context, t ObjectType) (keys map[string]int64, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("list", t.Group, start, err) }()

	prefix := TypedFolder(s.root, t.Group) + "/"
	keys = make(map[string]int64)
	scanned := 0
	marker := ""
	for {
		var page *storage.Page
		err = s.opts.Retry.run(ctx, func() error {
			return s.withTimeout(ctx, s.opts.RequestTimeout, func(ctx context.Context) error {
				var listErr error
				page, listErr = s.store.ListObjects(ctx, storage.ListInput{
					Prefix:  prefix,
					Marker:  marker,
					MaxKeys: s.opts.PageSize,
				})
				return listErr
			})
		})
		if err != nil {
			s.logError(err, "list", t, prefix)
			return nil, err
		}

		scanned += len(page.Objects)
		for _, obj := range page.Objects {
			logical, ok := ExtractLogicalKey(s.root, t, obj.Key)
			if !ok {
				continue
			}
			keys[logical] = obj.LastModified.UnixMilli()
		}

		if !page.Truncated {
			break
		}
		if page.NextMarker == "" || page.NextMarker == marker {
			err = fmt.Errorf("list %s: backend returned a truncated page without a new marker", prefix)
			s.logError(err, "list", t, prefix)
			return nil, err
		}
		marker = page.NextMarker
	}

	s.logger.Info().
		Int64("fetch_ms", time.Since(start).Milliseconds()).
		Int("scanned", scanned).
		Int("count", len(keys)).
		Str("type", t.Group).
		Msg("fetched object keys")
	return keys, nil
}

// ListObjectVersions always returns an empty result; see SupportsVersioning.
func (s *Service) ListObjectVersions(_ context.Context, _ ObjectType, _ string, _ int) ([]Timestamped, error) {
	return []Timestamped{}, nil
}

// GetLastModified is not tracked per type by this backend and always returns 0.
func (s *Service) GetLastModified(_ context.Context, _ ObjectType) (int64, error) {
	return 0, nil
}

func (s *Service) withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, d, err)
	}
	return err
}

func (s *Service) logError(err error, op string, t ObjectType, key string) {
	s.logger.Error().
		Err(err).
		Str("op", op).
		Str("group", t.Group).
		Str("key", key).
		Msg("object storage operation failed")
}

func (s *Service) bucketName() string {
	if d, ok := s.store.(storage.Describer); ok {
		return d.Bucket()
	}
	return ""
}

// Describe names the backend and bucket when the store can report them.
func (s *Service) Describe() (backend, bucket string) {
	if d, ok := s.store.(storage.Describer); ok {
		return d.Backend(), d.Bucket()
	}
	return "", ""
}

