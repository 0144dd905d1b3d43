package publisher

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vodforge/internal/storage"
	"vodforge/internal/util"
)

// PublishError scopes an upload failure to the object key it hit.
type PublishError struct {
	Key string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Key, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Publisher uploads a rendition's local files to the object store under a
// deterministic prefix, preserving filenames. Partial uploads are fine: a
// retry of the same prefix overwrites.
type Publisher struct {
	bucket storage.Bucket
}

func New(bucket storage.Bucket) *Publisher {
	return &Publisher{bucket: bucket}
}

func (p *Publisher) Publish(ctx context.Context, localDir string, prefix string) ([]string, error) {
	entries, err := os.ReadDir(localDir)

	if err != nil {
		return nil, errors.Wrapf(err, "unable to read '%s'", localDir)
	}

	var keys []string

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		key := path.Join(prefix, entry.Name())

		if err = util.Upload(ctx, p.bucket, key, filepath.Join(localDir, entry.Name()), ContentType(entry.Name())); err != nil {
			return nil, &PublishError{Key: key, Err: err}
		}

		keys = append(keys, key)
	}

	log.WithFields(log.Fields{
		"prefix": prefix,
		"files":  len(keys),
	}).Debug("rendition published")

	return keys, nil
}

// ContentType maps a filename to its upload content type, with HLS types
// pinned explicitly since the platform mime table rarely knows them.
func ContentType(name string) string {
	switch ext := filepath.Ext(name); ext {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4":
		return "video/mp4"
	default:
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}

		return "application/octet-stream"
	}
}
