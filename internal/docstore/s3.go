package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
)

// S3Backend keeps each document as a JSON object in a bucket.
type S3Backend struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Backend verifies the bucket exists.
func NewS3Backend(ctx context.Context, client *minio.Client, bucket, prefix string) (*S3Backend, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("docstore: check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("docstore: bucket %q does not exist", bucket)
	}
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}, nil
}

// Kind implements Backend.
func (b *S3Backend) Kind() string { return "s3" }

// Key returns the object key of the named document.
func (b *S3Backend) Key(name string) string {
	return path.Join(b.prefix, name+".json")
}

// Load implements Backend.
func (b *S3Backend) Load(ctx context.Context, name string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.Key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, b.missingOrErr(err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, b.missingOrErr(err)
	}
	return data, nil
}

// Mutate implements Backend. Atomicity is per object; concurrent writers in
// one process are serialized by the Document lock.
func (b *S3Backend) Mutate(ctx context.Context, name string, fn func([]byte) ([]byte, error)) error {
	current, err := b.Load(ctx, name)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = b.client.PutObject(ctx, b.bucket, b.Key(name), bytes.NewReader(next), int64(len(next)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (b *S3Backend) missingOrErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return fmt.Errorf("get object: %w", err)
}
