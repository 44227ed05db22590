// Package objectstore wraps an S3-compatible object store (minio-go) for
// both the persisted release document and the release lock object.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotExist is returned when a key has no object.
var ErrNotExist = errors.New("objectstore: object does not exist")

// ErrAlreadyExists is returned by PutIfNotExists when the key is already
// occupied — the conditional-create failure path used for lock objects.
var ErrAlreadyExists = errors.New("objectstore: object already exists")

// Client is the port the release store and lock manager depend on.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// PutIfNotExists fails with ErrAlreadyExists if an object is already
	// present at key. It is a stat-then-put, not an atomic conditional
	// create; see MinioClient.PutIfNotExists for the race this leaves
	// open.
	PutIfNotExists(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// MinioClient is the minio-go-backed implementation.
type MinioClient struct {
	mc     *minio.Client
	bucket string
}

// Config configures the underlying minio client.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// NewMinioClient dials the object store and ensures the configured bucket
// exists, creating it if this is the first run against a fresh store.
func NewMinioClient(ctx context.Context, cfg Config) (*MinioClient, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioClient{mc: mc, bucket: cfg.Bucket}, nil
}

// Get reads an object's full contents.
func (c *MinioClient) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateGetErr(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateGetErr(err)
	}
	return data, nil
}

// Put writes an object unconditionally, overwriting any existing value.
func (c *MinioClient) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

// PutIfNotExists performs a check-then-create: it stats the key first and
// refuses to overwrite a live object. This is not perfectly race-free the
// way a native S3 If-None-Match header would be, but it matches the
// check-before-create shape of the file-based lock this client replaces,
// and lock staleness detection (internal/release/store) bounds the blast
// radius of a lost race.
func (c *MinioClient) PutIfNotExists(ctx context.Context, key string, data []byte) error {
	_, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return ErrAlreadyExists
	}
	if !isNotFound(err) {
		return err
	}
	return c.Put(ctx, key, data)
}

// Delete removes an object, treating a missing object as success.
func (c *MinioClient) Delete(ctx context.Context, key string) error {
	err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func translateGetErr(err error) error {
	if isNotFound(err) {
		return ErrNotExist
	}
	return err
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
