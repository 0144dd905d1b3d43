package storage

import (
	"context"
	"time"

	_ "gocloud.dev/blob/fileblob"
)

// Bucket is the object store handle shared by the pipeline, the publisher
// and the signing service. Keys are deterministic, so Store overwrites.
type Bucket interface {
	Get(ctx context.Context, key string) (data []byte, err error)
	Store(ctx context.Context, key string, data []byte, contentType string) (err error)
	Delete(ctx context.Context, prefix string) (err error)
	SignedURL(ctx context.Context, key string, expiry time.Duration) (url string, err error)
	SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (url string, err error)
}
