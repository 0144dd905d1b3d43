package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

type local struct {
	bucket *blob.Bucket
}

// NewLocal opens a directory-backed bucket, mostly for development. Signed
// URLs are HMAC tokens resolvable by a file server mounted on baseURL.
func NewLocal(ctx context.Context, path string, baseURL string, secret string) (Bucket, error) {
	base, err := url.Parse(baseURL)

	if err != nil {
		return nil, err
	}

	signer := fileblob.NewURLSignerHMAC(base, []byte(secret))
	bucket, err := fileblob.OpenBucket(path, &fileblob.Options{URLSigner: signer})

	if err != nil {
		return nil, err
	}

	return &local{bucket: bucket}, nil
}

func (l *local) Get(ctx context.Context, key string) (data []byte, err error) {
	return l.bucket.ReadAll(ctx, key)
}

func (l *local) Store(ctx context.Context, key string, data []byte, contentType string) error {
	return l.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType})
}

func (l *local) Delete(ctx context.Context, prefix string) error {
	iter := l.bucket.List(&blob.ListOptions{
		Prefix: prefix,
	})

	for {
		obj, err := iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if obj.IsDir {
			continue
		}

		if err = l.bucket.Delete(ctx, obj.Key); err != nil {
			return err
		}
	}

	return nil
}

func (l *local) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return l.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: expiry})
}

func (l *local) SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return l.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: expiry, Method: "PUT"})
}
