package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"vodforge/internal/catalog"
	"vodforge/internal/queue"
	"vodforge/internal/storage"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []queue.TranscodeJob
}

func (q *fakeQueue) Push(ctx context.Context, name string, data interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, data.(queue.TranscodeJob))
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context, name string, data interface{}) (bool, error) {
	return false, nil
}

func (q *fakeQueue) Len(ctx context.Context, name string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

func newGatewayFixture(t *testing.T) (*Gateway, *catalog.Memory, *fakeQueue) {
	t.Helper()

	cat := catalog.NewMemory()
	q := &fakeQueue{}

	return NewGateway(cat, storage.NewMemory(), q, nil, time.Hour), cat, q
}

func TestUploadRegistersVideoAndSignsURL(t *testing.T) {
	gateway, cat, _ := newGatewayFixture(t)

	body := strings.NewReader(`{"key":"uploads/clip.mp4","title":"clip"}`)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	rec := httptest.NewRecorder()
	gateway.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		UploadURL string `json:"uploadUrl"`
		VideoID   int64  `json:"videoId"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response payload: %v", err)
	}

	if resp.UploadURL == "" {
		t.Error("missing upload url")
	}

	video, ok, err := cat.GetVideo(context.Background(), resp.VideoID)

	if err != nil || !ok {
		t.Fatalf("video %d not registered (ok=%v err=%v)", resp.VideoID, ok, err)
	}

	if video.Key != "uploads/clip.mp4" || video.Status != catalog.StatusPending {
		t.Errorf("unexpected video record: %+v", video)
	}
}

func TestUploadRejectsMissingKey(t *testing.T) {
	gateway, _, _ := newGatewayFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"title":"clip"}`))
	rec := httptest.NewRecorder()
	gateway.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestQueueJobEnqueues(t *testing.T) {
	gateway, _, q := newGatewayFixture(t)

	body := strings.NewReader(`{"videoId":7,"key":"uploads/clip.mp4"}`)
	req := httptest.NewRequest(http.MethodPost, "/queue-job", body)
	rec := httptest.NewRecorder()
	gateway.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(q.jobs) != 1 || q.jobs[0].VideoID != 7 || q.jobs[0].Key != "uploads/clip.mp4" {
		t.Errorf("unexpected queue contents: %+v", q.jobs)
	}
}

func TestQueueJobValidatesPayload(t *testing.T) {
	gateway, _, q := newGatewayFixture(t)

	for _, body := range []string{`{"videoId":0,"key":"k"}`, `{"videoId":7}`, `not-json`} {
		req := httptest.NewRequest(http.MethodPost, "/queue-job", strings.NewReader(body))
		rec := httptest.NewRecorder()
		gateway.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}

	if len(q.jobs) != 0 {
		t.Errorf("invalid requests reached the queue: %+v", q.jobs)
	}
}
