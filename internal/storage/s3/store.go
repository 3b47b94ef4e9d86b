// Package s3 serves an S3 compatible bucket as a storage.ObjectStore so the
// file backend can walk it like a directory tree.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/duckmesh/duckframe/internal/config"
	"github.com/duckmesh/duckframe/internal/storage"
)

// bucket is the slice of the S3 API the store needs, bound to one bucket.
// Keys are absolute within the bucket.
type bucket interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	StatObject(ctx context.Context, key string) (storage.ObjectInfo, error)
	RemoveObject(ctx context.Context, key string) error
	ListPrefix(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// Store roots every key under prefix inside a single bucket.
type Store struct {
	bucket bucket
	prefix string
}

func New(ctx context.Context, cfg config.ObjectStoreConfig) (*Store, error) {
	name := strings.TrimSpace(cfg.Bucket)
	if name == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	host, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	mc, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	if cfg.AutoCreateBucket {
		if err := ensureBucket(ctx, mc, name, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return newStore(&minioBucket{client: mc, name: name}, cfg.Prefix)
}

func newStore(b bucket, prefix string) (*Store, error) {
	if b == nil {
		return nil, fmt.Errorf("bucket is required")
	}
	cleaned, err := storage.CleanPath(prefix)
	if err != nil {
		return nil, fmt.Errorf("object store prefix: %w", err)
	}
	return &Store{bucket: b, prefix: cleaned}, nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	full, err := s.objectKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.bucket.PutObject(ctx, full, body, size, opts.ContentType)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("put %q: %w", full, err)
	}
	info.Key = s.relative(info.Key)
	return info, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	body, err := s.bucket.GetObject(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", full, err)
	}
	return body, nil
}

func (s *Store) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	full, err := s.objectKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.bucket.StatObject(ctx, full)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("stat %q: %w", full, err)
	}
	info.Key = s.relative(info.Key)
	return info, nil
}

// Delete is idempotent: removing a missing key succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	full, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.RemoveObject(ctx, full); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("delete %q: %w", full, err)
	}
	return nil
}

// List returns the immediate children of prefix with keys relative to the
// store prefix. Common prefixes come back with Dir set.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	cleaned, err := storage.CleanPath(prefix)
	if err != nil {
		return nil, err
	}
	listPrefix := storage.JoinPath(s.prefix, cleaned)
	if listPrefix != "" {
		listPrefix += "/"
	}
	infos, err := s.bucket.ListPrefix(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", listPrefix, err)
	}
	out := make([]storage.ObjectInfo, 0, len(infos))
	for _, info := range infos {
		if strings.HasSuffix(info.Key, "/") {
			info.Dir = true
		}
		info.Key = s.relative(strings.TrimSuffix(info.Key, "/"))
		if info.Key == "" || info.Key == cleaned {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *Store) objectKey(key string) (string, error) {
	cleaned, err := storage.CleanPath(key)
	if err != nil {
		return "", err
	}
	if cleaned == "" {
		return "", fmt.Errorf("object key is required")
	}
	return storage.JoinPath(s.prefix, cleaned), nil
}

func (s *Store) relative(key string) string {
	if s.prefix == "" {
		return key
	}
	if key == s.prefix {
		return ""
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

// parseEndpoint accepts either host[:port] or a full URL. An https URL
// forces TLS regardless of useSSL.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("object store endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", raw)
	}
	return parsed.Host, useSSL || parsed.Scheme == "https", nil
}

func ensureBucket(ctx context.Context, mc *minio.Client, name, region string) error {
	exists, err := mc.BucketExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", name, mapMinioErr(err))
	}
	if exists {
		return nil
	}
	if err := mc.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", name, mapMinioErr(err))
	}
	return nil
}

type minioBucket struct {
	client *minio.Client
	name   string
}

func (b *minioBucket) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	info, err := b.client.PutObject(ctx, b.name, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return storage.ObjectInfo{}, mapMinioErr(err)
	}
	return storage.ObjectInfo{Key: info.Key, Size: info.Size, ETag: info.ETag, LastModified: info.LastModified}, nil
}

// GetObject stats the object before returning it; minio defers the request
// until the first read otherwise and a missing key would surface late.
func (b *minioBucket) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinioErr(err)
	}
	return obj, nil
}

func (b *minioBucket) StatObject(ctx context.Context, key string) (storage.ObjectInfo, error) {
	info, err := b.client.StatObject(ctx, b.name, key, minio.StatObjectOptions{})
	if err != nil {
		return storage.ObjectInfo{}, mapMinioErr(err)
	}
	return storage.ObjectInfo{Key: info.Key, Size: info.Size, ETag: info.ETag, LastModified: info.LastModified}, nil
}

func (b *minioBucket) RemoveObject(ctx context.Context, key string) error {
	return mapMinioErr(b.client.RemoveObject(ctx, b.name, key, minio.RemoveObjectOptions{}))
}

func (b *minioBucket) ListPrefix(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for obj := range b.client.ListObjects(ctx, b.name, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, mapMinioErr(obj.Err)
		}
		out = append(out, storage.ObjectInfo{Key: obj.Key, Size: obj.Size, ETag: obj.ETag, LastModified: obj.LastModified})
	}
	return out, nil
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%w: %v", storage.ErrObjectNotFound, err)
	}
	return err
}
