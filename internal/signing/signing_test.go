package signing

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"vodforge/internal/storage"
)

// slowBucket signs with a per-key delay so completion order can be forced
// to differ from call order.
type slowBucket struct {
	objects map[string]string
	delays  map[string]time.Duration
	failOn  string
	signed  int64
}

func (b *slowBucket) Get(ctx context.Context, key string) ([]byte, error) {
	content, ok := b.objects[key]

	if !ok {
		return nil, errors.Errorf("no such key '%s'", key)
	}

	return []byte(content), nil
}

func (b *slowBucket) Store(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}

func (b *slowBucket) Delete(ctx context.Context, prefix string) error {
	return nil
}

func (b *slowBucket) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if key == b.failOn {
		return "", errors.New("signer unavailable")
	}

	time.Sleep(b.delays[key])
	atomic.AddInt64(&b.signed, 1)

	return "https://signed.invalid/" + key, nil
}

func (b *slowBucket) SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func TestRenderPreservesLineOrderUnderConcurrency(t *testing.T) {
	master := strings.Join([]string{
		"#EXTM3U",
		"hls/1/a/index.m3u8",
		"#COMMENT",
		"hls/1/b/index.m3u8",
	}, "\n")

	bucket := &slowBucket{
		objects: map[string]string{"hls/1/master.m3u8": master},
		delays: map[string]time.Duration{
			// First reference resolves last.
			"hls/1/a/index.m3u8": 50 * time.Millisecond,
			"hls/1/b/index.m3u8": 0,
		},
	}

	signer := &Signer{Bucket: bucket}
	signed, err := signer.Render(context.Background(), "hls/1/master.m3u8")

	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	lines := strings.Split(signed, "\n")

	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}

	if lines[0] != "#EXTM3U" || lines[2] != "#COMMENT" {
		t.Errorf("non-reference lines changed: %q", lines)
	}

	if lines[1] != "https://signed.invalid/hls/1/a/index.m3u8" {
		t.Errorf("line 1 out of order: %q", lines[1])
	}

	if lines[3] != "https://signed.invalid/hls/1/b/index.m3u8" {
		t.Errorf("line 3 out of order: %q", lines[3])
	}
}

func TestRenderResolvesRelativeSegments(t *testing.T) {
	variant := strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:6.000000,",
		"segment_000.ts",
		"#EXT-X-ENDLIST",
	}, "\n")

	bucket := &slowBucket{
		objects: map[string]string{"hls/1/720p/index.m3u8": variant},
	}

	signer := &Signer{Bucket: bucket}
	signed, err := signer.Render(context.Background(), "hls/1/720p/index.m3u8")

	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	lines := strings.Split(signed, "\n")

	if lines[2] != "https://signed.invalid/hls/1/720p/segment_000.ts" {
		t.Errorf("segment not resolved against manifest directory: %q", lines[2])
	}
}

func TestRenderPassesNonReferencesThroughUnchanged(t *testing.T) {
	variant := "#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=1280x720\nhls/1/720p/index.m3u8"

	bucket := &slowBucket{
		objects: map[string]string{"hls/1/master.m3u8": variant},
	}

	signer := &Signer{Bucket: bucket}
	signed, err := signer.Render(context.Background(), "hls/1/master.m3u8")

	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if !strings.HasPrefix(signed, "#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=1280x720\n") {
		t.Errorf("directive line was altered: %q", signed)
	}
}

func TestRenderFailsWholeRequestOnSigningError(t *testing.T) {
	master := "#EXTM3U\nhls/1/a/index.m3u8\nhls/1/b/index.m3u8"

	bucket := &slowBucket{
		objects: map[string]string{"hls/1/master.m3u8": master},
		failOn:  "hls/1/b/index.m3u8",
	}

	signer := &Signer{Bucket: bucket}

	if _, err := signer.Render(context.Background(), "hls/1/master.m3u8"); err == nil {
		t.Fatal("expected render to fail when one line cannot be signed")
	}
}

func TestRenderReportsMissingManifest(t *testing.T) {
	signer := &Signer{Bucket: storage.NewMemory()}

	_, err := signer.Render(context.Background(), "hls/1/master.m3u8")

	if !errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
}

func TestRenderYieldsFreshURLs(t *testing.T) {
	bucket := storage.NewMemory()
	_ = bucket.Store(context.Background(), "hls/1/master.m3u8", []byte("#EXTM3U\nhls/1/a/index.m3u8"), "")

	signer := &Signer{Bucket: bucket}

	first, err := signer.Render(context.Background(), "hls/1/master.m3u8")

	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	second, err := signer.Render(context.Background(), "hls/1/master.m3u8")

	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if first == second {
		t.Error("expected fresh signatures on repeated renders")
	}

	if strings.Count(first, "\n") != strings.Count(second, "\n") {
		t.Error("line structure changed between renders")
	}
}
