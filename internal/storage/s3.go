package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	appconfig "front50store/internal/config"
)

const defaultAWSRegion = "us-east-1"

type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type objectUploader interface {
	UploadObject(ctx context.Context, input *transfermanager.UploadObjectInput, optFns ...func(*transfermanager.Options)) (*transfermanager.UploadObjectOutput, error)
}

// S3Client talks to AWS S3 or any endpoint speaking its API. Uploads go through
// the transfer manager, which switches to multipart for large payloads and
// returns only after the upload has completed.
type S3Client struct {
	api      s3API
	uploader objectUploader
	bucket   string
	region   string
}

func NewS3Client(ctx context.Context, cfg appconfig.S3Config) (*S3Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		return nil, errors.New("s3 region is required")
	}
	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Client{
		api:      client,
		uploader: transfermanager.New(client),
		bucket:   bucket,
		region:   region,
	}, nil
}

func normalizeEndpoint(raw string) (string, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("s3 endpoint %q must be a valid http(s) URL", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("s3 endpoint %q must use http or https", endpoint)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func (c *S3Client) Bucket() string  { return c.bucket }
func (c *S3Client) Backend() string { return "s3" }

func (c *S3Client) HeadBucket(ctx context.Context) error {
	if c.api == nil {
		return fmt.Errorf("s3 api client: %w", errNotConfigured)
	}
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return classify("head bucket", err)
	}
	return nil
}

func (c *S3Client) CreateBucket(ctx context.Context) error {
	if c.api == nil {
		return fmt.Errorf("s3 api client: %w", errNotConfigured)
	}
	input := &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}
	if c.region != "" && c.region != defaultAWSRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (c *S3Client) PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error {
	if c.uploader == nil {
		return fmt.Errorf("s3 uploader: %w", errNotConfigured)
	}
	if err := validateObjectKey(key); err != nil {
		return err
	}

	input := &transfermanager.UploadObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if opts.ContentEncoding != "" {
		input.ContentEncoding = aws.String(opts.ContentEncoding)
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if _, err := c.uploader.UploadObject(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (c *S3Client) GetObject(ctx context.Context, key string) (*Object, error) {
	if c.api == nil {
		return nil, fmt.Errorf("s3 api client: %w", errNotConfigured)
	}
	if err := validateObjectKey(key); err != nil {
		return nil, err
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify("get object", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return &Object{
		Key:             key,
		Body:            data,
		LastModified:    aws.ToTime(out.LastModified),
		ContentEncoding: aws.ToString(out.ContentEncoding),
	}, nil
}

func (c *S3Client) DeleteObject(ctx context.Context, key string) error {
	if c.api == nil {
		return fmt.Errorf("s3 api client: %w", errNotConfigured)
	}
	if err := validateObjectKey(key); err != nil {
		return err
	}
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ListObjects fetches one page. The continuation token is used as the marker.
func (c *S3Client) ListObjects(ctx context.Context, in ListInput) (*Page, error) {
	if c.api == nil {
		return nil, fmt.Errorf("s3 api client: %w", errNotConfigured)
	}
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(in.Prefix),
		MaxKeys: aws.Int32(maxKeys(in.MaxKeys)),
	}
	if in.Marker != "" {
		input.ContinuationToken = aws.String(in.Marker)
	}

	out, err := c.api.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, classify("list objects", err)
	}

	page := &Page{
		Objects:    make([]ObjectSummary, 0, len(out.Contents)),
		Truncated:  aws.ToBool(out.IsTruncated),
		NextMarker: aws.ToString(out.NextContinuationToken),
	}
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		page.Objects = append(page.Objects, ObjectSummary{
			Key:          *obj.Key,
			LastModified: aws.ToTime(obj.LastModified),
			Size:         aws.ToInt64(obj.Size),
		})
	}
	if page.Truncated && page.NextMarker == "" {
		return nil, errors.New("list objects: truncated page without continuation token")
	}
	return page, nil
}

func validateObjectKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	return nil
}

// classify wraps err with ErrNotFound when the service reported a missing
// bucket or object.
func classify(op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}
