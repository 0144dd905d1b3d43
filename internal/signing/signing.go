package signing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gocloud.dev/gcerrors"
	"golang.org/x/sync/errgroup"

	"vodforge/internal/manifest"
	"vodforge/internal/storage"
)

// ErrManifestNotFound reports that the manifest object itself is missing,
// as opposed to a storage or signing failure.
var ErrManifestNotFound = errors.New("manifest not found")

const defaultTTL = time.Hour

// Signer rewrites a stored playlist so every reference line becomes a
// fresh time-limited signed URL. A request either returns a fully signed
// manifest or an error; a partially signed one is unplayable and never
// leaves this package.
type Signer struct {
	Bucket storage.Bucket
	TTL    time.Duration
}

func (s *Signer) ttl() time.Duration {
	if s.TTL <= 0 {
		return defaultTTL
	}

	return s.TTL
}

// Render fetches manifestKey, signs each reference concurrently and
// reassembles the lines in their original order.
func (s *Signer) Render(ctx context.Context, manifestKey string) (string, error) {
	data, err := s.Bucket.Get(ctx, manifestKey)

	if err != nil {
		if isNotFound(err) {
			return "", errors.Wrapf(ErrManifestNotFound, "'%s'", manifestKey)
		}

		return "", errors.Wrapf(err, "unable to fetch manifest '%s'", manifestKey)
	}

	lines := manifest.Parse(string(data))

	group, groupCtx := errgroup.WithContext(ctx)

	for i := range lines {
		if lines[i].Kind != manifest.KindReference {
			continue
		}

		line := &lines[i]

		group.Go(func() error {
			objectKey := manifest.ResolveKey(manifestKey, line.Path)
			url, signErr := s.Bucket.SignedURL(groupCtx, objectKey, s.ttl())

			if signErr != nil {
				return errors.Wrapf(signErr, "unable to sign '%s'", objectKey)
			}

			line.Raw = url
			return nil
		})
	}

	if err = group.Wait(); err != nil {
		return "", err
	}

	return manifest.Join(lines), nil
}

func isNotFound(err error) bool {
	var coded interface{ ErrorCode() gcerrors.ErrorCode }

	if errors.As(err, &coded) {
		return coded.ErrorCode() == gcerrors.NotFound
	}

	return gcerrors.Code(err) == gcerrors.NotFound
}
