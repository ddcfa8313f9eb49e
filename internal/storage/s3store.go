package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds connection settings for an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Store keeps assets in an S3 bucket.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store returns an S3Store for cfg. No request is made until first use.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 store: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Fetch implements Fetcher. Short reads are reported as TransientIO rather
// than returned as truncated content.
func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	bucket, object, err := s.locate(key)
	if err != nil {
		return nil, &FetchError{Kind: NotFound, Key: key, Err: err}
	}

	obj, err := s.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, &FetchError{Kind: classifyS3(err), Key: key, Err: err}
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, &FetchError{Kind: classifyS3(err), Key: key, Err: err}
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &FetchError{Kind: classifyS3(err), Key: key, Err: err}
	}
	if int64(len(data)) != info.Size {
		return nil, &FetchError{Kind: TransientIO, Key: key,
			Err: fmt.Errorf("short read: got %d of %d bytes", len(data), info.Size)}
	}
	return data, nil
}

// Store implements Storer.
func (s *S3Store) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	bucket, object, err := s.locate(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("store %q: %w", key, err)
	}
	return object, nil
}

// locate accepts plain object keys as well as s3://bucket/key references.
func (s *S3Store) locate(key string) (bucket, object string, err error) {
	key = strings.TrimSpace(key)
	bucket = s.bucket
	if rest, ok := strings.CutPrefix(key, "s3://"); ok {
		var found bool
		bucket, key, found = strings.Cut(rest, "/")
		if !found || bucket == "" {
			return "", "", fmt.Errorf("invalid s3 reference %q", "s3://"+rest)
		}
	}
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", "", ErrEmptyKey
	}
	return bucket, key, nil
}

func classifyS3(err error) FetchKind {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return NotFound
	}
	if resp.StatusCode == http.StatusNotFound {
		return NotFound
	}
	return TransientIO
}
