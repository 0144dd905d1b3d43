package storage

import (
	"context"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/gcp"
)

type gcs struct {
	bucket *blob.Bucket
}

func NewGCS(ctx context.Context, bucketName string, client *gcp.HTTPClient) (Bucket, error) {
	bucket, err := gcsblob.OpenBucket(ctx, client, bucketName, nil)

	if err != nil {
		return nil, err
	}

	return &gcs{bucket: bucket}, nil
}

func (g *gcs) Get(ctx context.Context, key string) (data []byte, err error) {
	return g.bucket.ReadAll(ctx, key)
}

func (g *gcs) Store(ctx context.Context, key string, data []byte, contentType string) error {
	return g.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType})
}

func (g *gcs) Delete(ctx context.Context, prefix string) error {
	iter := g.bucket.List(&blob.ListOptions{
		Prefix: prefix,
	})

	for {
		obj, err := iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		if obj.IsDir {
			continue
		}

		if err = g.bucket.Delete(ctx, obj.Key); err != nil {
			return err
		}
	}

	return nil
}

func (g *gcs) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return g.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: expiry})
}

func (g *gcs) SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return g.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: expiry, Method: "PUT"})
}
