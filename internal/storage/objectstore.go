// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig holds S3/MinIO connection settings.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStore keeps the snapshot as one object in an S3-compatible bucket.
type ObjectStore struct {
	mc     *minio.Client
	bucket string
	object string
}

// NewObjectStore connects to the endpoint and creates the bucket if missing.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig, key string) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "flurchat"
	}
	if key == "" {
		key = StorageKey
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &ObjectStore{mc: mc, bucket: cfg.Bucket, object: key + ".json"}, nil
}

// Load downloads and decodes the snapshot object.
func (s *ObjectStore) Load(ctx context.Context) (*Snapshot, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap("get", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap("read", err)
	}
	return DecodeSnapshot(data)
}

// Save uploads the snapshot object.
func (s *ObjectStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}

	_, err = s.mc.PutObject(ctx, s.bucket, s.object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.bucket, s.object, err)
	}
	return nil
}

// Close is a no-op; the minio client holds no persistent resources.
func (s *ObjectStore) Close() error {
	return nil
}

func (s *ObjectStore) wrap(op string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNoSnapshot
	}
	return fmt.Errorf("%s %s/%s: %w", op, s.bucket, s.object, err)
}
