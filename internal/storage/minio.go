package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	appconfig "front50store/internal/config"
)

// MinioClient serves any S3-compatible endpoint through minio-go.
type MinioClient struct {
	client *minio.Client
	bucket string
	region string
}

func NewMinioClient(cfg appconfig.S3Config) (*MinioClient, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required for minio")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("s3 endpoint: %w", err)
	}

	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}
	client, err := minio.New(u.Host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       u.Scheme == "https",
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioClient{client: client, bucket: bucket, region: cfg.Region}, nil
}

func (c *MinioClient) Bucket() string  { return c.bucket }
func (c *MinioClient) Backend() string { return "minio" }

func (c *MinioClient) HeadBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return classifyMinio("head bucket", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q: %w", c.bucket, ErrNotFound)
	}
	return nil
}

func (c *MinioClient) CreateBucket(ctx context.Context) error {
	err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (c *MinioClient) PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error {
	if err := validateObjectKey(key); err != nil {
		return err
	}
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentEncoding: opts.ContentEncoding,
		ContentType:     opts.ContentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (c *MinioClient) GetObject(ctx context.Context, key string) (*Object, error) {
	if err := validateObjectKey(key); err != nil {
		return nil, err
	}
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinio("get object", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, classifyMinio("get object", err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return &Object{
		Key:             key,
		Body:            data,
		LastModified:    info.LastModified,
		ContentEncoding: info.Metadata.Get("Content-Encoding"),
	}, nil
}

func (c *MinioClient) DeleteObject(ctx context.Context, key string) error {
	if err := validateObjectKey(key); err != nil {
		return err
	}
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ListObjects cuts one page out of the minio listing iterator, resuming after Marker.
func (c *MinioClient) ListObjects(ctx context.Context, in ListInput) (*Page, error) {
	limit := int(maxKeys(in.MaxKeys))
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := c.client.ListObjects(listCtx, c.bucket, minio.ListObjectsOptions{
		Prefix:     in.Prefix,
		StartAfter: in.Marker,
		Recursive:  true,
		MaxKeys:    limit,
	})

	page := &Page{Objects: make([]ObjectSummary, 0)}
	for info := range objects {
		if info.Err != nil {
			return nil, classifyMinio("list objects", info.Err)
		}
		if len(page.Objects) == limit {
			page.Truncated = true
			page.NextMarker = page.Objects[limit-1].Key
			break
		}
		page.Objects = append(page.Objects, ObjectSummary{
			Key:          info.Key,
			LastModified: info.LastModified,
			Size:         info.Size,
		})
	}
	return page, nil
}

func classifyMinio(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.StatusCode == http.StatusNotFound,
		resp.Code == "NoSuchKey",
		resp.Code == "NoSuchBucket":
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
