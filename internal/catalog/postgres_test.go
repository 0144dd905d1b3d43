package catalog

import (
	"context"
	"os"
	"testing"
	"time"
)

// Integration coverage against a real database. Opt in with something like
//
//	VODFORGE_TEST_POSTGRES_DSN=postgres://localhost:5432/vodforge_test go test ./internal/catalog/
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()

	dsn := os.Getenv("VODFORGE_TEST_POSTGRES_DSN")

	if dsn == "" {
		t.Skip("VODFORGE_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPostgres(ctx, dsn)

	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}

	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), "DELETE FROM video_renditions")
		_, _ = store.pool.Exec(context.Background(), "DELETE FROM videos")
		store.Close()
	})

	return store
}

func TestPostgresVideoLifecycle(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()

	video, err := store.CreateVideo(ctx, "clip", "uploads/clip.mp4")

	if err != nil {
		t.Fatalf("create video: %v", err)
	}

	if video.Status != StatusPending || video.MasterPlaylist != nil {
		t.Errorf("fresh video not pending: %+v", video)
	}

	got, ok, err := store.GetVideo(ctx, video.ID)

	if err != nil || !ok {
		t.Fatalf("get video: ok=%v err=%v", ok, err)
	}

	if got.Key != "uploads/clip.mp4" {
		t.Errorf("unexpected key %q", got.Key)
	}

	if _, ok, err = store.GetVideo(ctx, video.ID+1000); err != nil || ok {
		t.Errorf("missing video: ok=%v err=%v", ok, err)
	}
}

func TestPostgresRenditionIdempotency(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()

	video, err := store.CreateVideo(ctx, "clip", "uploads/clip.mp4")

	if err != nil {
		t.Fatalf("create video: %v", err)
	}

	rendition := Rendition{VideoID: video.ID, Resolution: "720p", S3Key: "hls/1/720p/index.m3u8"}

	if err = store.CreateRendition(ctx, rendition); err != nil {
		t.Fatalf("create rendition: %v", err)
	}

	// A second insert for the same rung must be a no-op, not an error.
	if err = store.CreateRendition(ctx, rendition); err != nil {
		t.Fatalf("duplicate rendition: %v", err)
	}

	got, ok, err := store.GetVideo(ctx, video.ID)

	if err != nil || !ok {
		t.Fatalf("get video: ok=%v err=%v", ok, err)
	}

	if len(got.Renditions) != 1 {
		t.Errorf("expected 1 rendition, got %d", len(got.Renditions))
	}

	if _, ok, _ = store.GetRendition(ctx, video.ID, "480p"); ok {
		t.Error("unexpected rendition for unknown rung")
	}
}

func TestPostgresMarkReady(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()

	video, err := store.CreateVideo(ctx, "clip", "uploads/clip.mp4")

	if err != nil {
		t.Fatalf("create video: %v", err)
	}

	masterKey := "hls/1/master.m3u8"

	if err = store.MarkReady(ctx, video.ID, masterKey); err != nil {
		t.Fatalf("mark ready: %v", err)
	}

	got, _, err := store.GetVideo(ctx, video.ID)

	if err != nil {
		t.Fatalf("get video: %v", err)
	}

	if got.Status != StatusReady || got.MasterPlaylist == nil || *got.MasterPlaylist != masterKey {
		t.Errorf("ready flip incomplete: %+v", got)
	}

	if err = store.MarkReady(ctx, video.ID+1000, masterKey); err == nil {
		t.Error("expected error for unknown video")
	}
}
