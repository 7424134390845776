package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const localTempPattern = ".upload-*"

// LocalClient keeps one bucket as a directory tree under rootDir.
// Content-Encoding is not persisted; readers sniff the payload instead.
type LocalClient struct {
	rootDir string
	bucket  string
}

func NewLocalClient(rootDir, bucket string) (*LocalClient, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, errors.New("local root directory is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return nil, fmt.Errorf("invalid bucket name %q", bucket)
	}
	return &LocalClient{rootDir: filepath.Clean(rootDir), bucket: bucket}, nil
}

func (c *LocalClient) Bucket() string  { return c.bucket }
func (c *LocalClient) Backend() string { return "local" }

func (c *LocalClient) bucketDir() string {
	return filepath.Join(c.rootDir, c.bucket)
}

func (c *LocalClient) HeadBucket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(c.bucketDir())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("bucket %q: %w", c.bucket, ErrNotFound)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("bucket path %s is not a directory", c.bucketDir())
	}
	return nil
}

func (c *LocalClient) CreateBucket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(c.bucketDir(), 0o755)
}

func (c *LocalClient) PutObject(ctx context.Context, key string, data []byte, _ PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := c.objectPath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, localTempPattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, fullPath)
}

func (c *LocalClient) GetObject(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := c.objectPath(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %q: %w", key, ErrNotFound)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("object %q: %w", key, ErrNotFound)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	return &Object{
		Key:          key,
		Body:         data,
		LastModified: info.ModTime(),
	}, nil
}

func (c *LocalClient) DeleteObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, pathErr := c.objectPath(key)
	if pathErr != nil {
		return pathErr
	}
	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListObjects returns keys in lexical order after Marker, like the S3 v1 listing.
// Only directories that can hold keys under Prefix and after Marker are read,
// and the walk stops once one page plus a lookahead entry is collected.
func (c *LocalClient) ListObjects(ctx context.Context, input ListInput) (*Page, error) {
	if err := c.HeadBucket(ctx); err != nil {
		return nil, err
	}

	limit := int(maxKeys(input.MaxKeys))
	l := &localLister{
		ctx:    ctx,
		prefix: input.Prefix,
		marker: input.Marker,
		want:   limit + 1,
		found:  make([]ObjectSummary, 0),
	}
	if err := l.walk(c.bucketDir(), ""); err != nil && !errors.Is(err, errPageFull) {
		return nil, err
	}

	page := &Page{Objects: l.found}
	if len(l.found) > limit {
		page.Objects = l.found[:limit]
		page.Truncated = true
		page.NextMarker = l.found[limit-1].Key
	}
	return page, nil
}

var errPageFull = errors.New("listing page full")

type localLister struct {
	ctx    context.Context
	prefix string
	marker string
	want   int
	found  []ObjectSummary
}

// walk visits dir in key order: a directory sorts as its name plus "/", so
// every key beneath it lands exactly where a flat listing would put it.
func (l *localLister) walk(dir, keyPrefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) && keyPrefix != "" {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entrySortKey(entries[i]) < entrySortKey(entries[j]) })

	for _, entry := range entries {
		if err := l.ctx.Err(); err != nil {
			return err
		}
		key := keyPrefix + entry.Name()

		if entry.IsDir() {
			dirKey := key + "/"
			if !strings.HasPrefix(dirKey, l.prefix) && !strings.HasPrefix(l.prefix, dirKey) {
				continue
			}
			// Every key under dirKey sorts before the marker.
			if dirKey < l.marker && !strings.HasPrefix(l.marker, dirKey) {
				continue
			}
			if err := l.walk(filepath.Join(dir, entry.Name()), dirKey); err != nil {
				return err
			}
			continue
		}

		if matched, _ := filepath.Match(localTempPattern, entry.Name()); matched {
			continue
		}
		if !strings.HasPrefix(key, l.prefix) || key <= l.marker {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		l.found = append(l.found, ObjectSummary{Key: key, LastModified: info.ModTime(), Size: info.Size()})
		if len(l.found) >= l.want {
			return errPageFull
		}
	}
	return nil
}

func entrySortKey(entry os.DirEntry) string {
	if entry.IsDir() {
		return entry.Name() + "/"
	}
	return entry.Name()
}

func (c *LocalClient) objectPath(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: blank key", ErrInvalidKey)
	}
	// Keys are stored literally, as S3 would; anything filepath.Clean would
	// rewrite is refused rather than silently mapped to another object.
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." || strings.Contains(segment, `\`) {
			return "", fmt.Errorf("%w %q", ErrInvalidKey, key)
		}
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	return filepath.Join(c.bucketDir(), cleaned), nil
}
