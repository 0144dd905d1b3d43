package storage

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/s3blob"
)

type s3 struct {
	bucket *blob.Bucket
}

func NewS3(ctx context.Context, bucketName string, config *aws.Config) (Bucket, error) {
	sess, err := session.NewSession(config)

	if err != nil {
		return nil, err
	}

	bucket, err := s3blob.OpenBucket(ctx, sess, bucketName, nil)

	if err != nil {
		return nil, err
	}

	return &s3{bucket: bucket}, nil
}

func (s *s3) Get(ctx context.Context, key string) (data []byte, err error) {
	return s.bucket.ReadAll(ctx, key)
}

func (s *s3) Store(ctx context.Context, key string, data []byte, contentType string) error {
	return s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType})
}

func (s *s3) Delete(ctx context.Context, prefix string) error {
	iter := s.bucket.List(&blob.ListOptions{
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

		if err = s.bucket.Delete(ctx, obj.Key); err != nil {
			return err
		}
	}

	return nil
}

func (s *s3) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: expiry})
}

func (s *s3) SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: expiry, Method: "PUT"})
}
