package install

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectBackend keeps the record as one object in an S3-compatible bucket.
type ObjectBackend struct {
	client *minio.Client
	bucket string
	object string
}

type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	Object    string
}

func NewObjectBackend(ctx context.Context, cfg ObjectConfig) (*ObjectBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	backend := NewObjectBackendWithClient(client, cfg.Bucket, cfg.Object)
	if err := backend.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return backend, nil
}

func NewObjectBackendWithClient(client *minio.Client, bucket, object string) *ObjectBackend {
	return &ObjectBackend{client: client, bucket: bucket, object: object}
}

func (b *ObjectBackend) ensureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.bucket, err)
	}
	return nil
}

func (b *ObjectBackend) Load(ctx context.Context) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, b.translate(err, "get")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, b.translate(err, "read")
	}
	return data, nil
}

func (b *ObjectBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", b.bucket, b.object, err)
	}
	return nil
}

// SaveIfAbsent is a conditional put (If-None-Match: *); the store rejects it
// with 412 when the object already exists.
func (b *ObjectBackend) SaveIfAbsent(ctx context.Context, data []byte) error {
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	opts.SetMatchETagExcept("*")
	_, err := b.client.PutObject(ctx, b.bucket, b.object, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return b.translate(err, "put")
	}
	return nil
}

func (b *ObjectBackend) Delete(ctx context.Context) error {
	// RemoveObject succeeds for missing keys.
	if err := b.client.RemoveObject(ctx, b.bucket, b.object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", b.bucket, b.object, err)
	}
	return nil
}

func (b *ObjectBackend) Ping(ctx context.Context) error {
	if _, err := b.client.BucketExists(ctx, b.bucket); err != nil {
		return fmt.Errorf("ping s3: %w", err)
	}
	return nil
}

func (b *ObjectBackend) translate(err error, op string) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey":
		return ErrNotFound
	case resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed:
		return ErrExists
	}
	return fmt.Errorf("%s %s/%s: %w", op, b.bucket, b.object, err)
}
