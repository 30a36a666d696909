package storage

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultS3Endpoint = "s3.amazonaws.com"
	keySeparator      = "/"
)

// S3Config holds the constructor parameters of the S3-compatible backend.
// Credentials fall back to the AWS and MinIO environment variables and the
// shared AWS credentials file when not given.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Insecure  bool   `mapstructure:"insecure"`
}

// objectAPI is the part of *minio.Client used by S3.
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// S3 stores objects in a bucket below an optional key prefix.
type S3 struct {
	client objectAPI
	bucket string
	prefix string
}

var _ Provider = (*S3)(nil)

// NewS3 creates an S3 provider. No request is made until the first
// operation.
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, fmt.Errorf("access_key and secret_key must be set together")
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.Insecure)

	var creds *credentials.Credentials
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	return newS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3WithClient(client objectAPI, bucket, prefix string) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, keySeparator),
	}
}

// splitEndpoint strips a URL scheme from endpoint, which minio does not
// accept, and derives whether TLS should be used from it.
func splitEndpoint(endpoint string, insecure bool) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case endpoint == "":
		return defaultS3Endpoint, !insecure
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	}
	return strings.TrimSuffix(endpoint, "/"), !insecure
}

// fullKey joins the prefix and key with exactly one separator.
func (s *S3) fullKey(key string) string {
	key = strings.TrimLeft(key, keySeparator)
	switch {
	case s.prefix == "":
		return key
	case key == "":
		return s.prefix
	}
	return s.prefix + keySeparator + key
}

func (s *S3) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + keySeparator
}

func (s *S3) Store(ctx context.Context, r io.Reader, key string) error {
	size, err := readerSize(r)
	if err != nil {
		return fmt.Errorf("sizing %s: %w", key, err)
	}

	var opts minio.PutObjectOptions
	if size < 0 {
		opts.PartSize = streamPartSize
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.fullKey(key), r, size, opts)
	if err != nil {
		return fmt.Errorf("storing s3://%s/%s: %w", s.bucket, s.fullKey(key), err)
	}
	return nil
}

func (s *S3) Retrieve(ctx context.Context, key, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	full := s.fullKey(key)
	err := s.client.FGetObject(ctx, s.bucket, full, dest, minio.GetObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("s3://%s/%s: %w", s.bucket, full, ErrNotFound)
		}
		return fmt.Errorf("retrieving s3://%s/%s: %w", s.bucket, full, err)
	}
	return nil
}

func (s *S3) List(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		prefix := s.listPrefix()
		objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		})
		for obj := range objects {
			if obj.Err != nil {
				yield("", fmt.Errorf("listing s3://%s/%s: %w", s.bucket, prefix, obj.Err))
				return
			}
			if strings.HasSuffix(obj.Key, keySeparator) {
				continue
			}
			if !yield(strings.TrimPrefix(obj.Key, prefix), nil) {
				return
			}
		}
	}
}

// streamPartSize bounds the buffer minio allocates for readers of unknown
// length, which otherwise defaults to the maximum part size.
const streamPartSize = 16 << 20

// readerSize returns the bytes left in r, or -1 when r cannot tell.
func readerSize(r io.Reader) (int64, error) {
	switch v := r.(type) {
	case interface{ Len() int }:
		return int64(v.Len()), nil
	case io.Seeker:
		cur, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1, nil
		}
		end, err := v.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		if _, err := v.Seek(cur, io.SeekStart); err != nil {
			return 0, err
		}
		return end - cur, nil
	}
	return -1, nil
}
