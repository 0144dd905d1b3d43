package server

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"vodforge/internal/catalog"
	"vodforge/internal/queue"
	"vodforge/internal/storage"
)

// Gateway registers uploads and enqueues transcode jobs. The actual bytes
// go straight to the object store through a signed PUT URL.
type Gateway struct {
	catalog   catalog.Catalog
	bucket    storage.Bucket
	queue     queue.Queue
	limiter   *RateLimiter
	uploadTTL time.Duration
}

func NewGateway(cat catalog.Catalog, bucket storage.Bucket, q queue.Queue, limiter *RateLimiter, uploadTTL time.Duration) *Gateway {
	if uploadTTL <= 0 {
		uploadTTL = time.Hour
	}

	return &Gateway{catalog: cat, bucket: bucket, queue: q, limiter: limiter, uploadTTL: uploadTTL}
}

func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /upload", g.limiter.Middleware(http.HandlerFunc(g.handleUpload)))
	mux.HandleFunc("POST /queue-job", g.handleQueueJob)

	return mux
}

type uploadRequest struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

type uploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	VideoID   int64  `json:"videoId"`
}

func (g *Gateway) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "Key is required")
		return
	}

	video, err := g.catalog.CreateVideo(r.Context(), req.Title, req.Key)

	if err != nil {
		log.WithError(err).Error("unable to create video")
		writeError(w, http.StatusInternalServerError, "Failed to generate upload URL")
		return
	}

	uploadURL, err := g.bucket.SignedUploadURL(r.Context(), req.Key, g.uploadTTL)

	if err != nil {
		log.WithError(err).Error("unable to sign upload url")
		writeError(w, http.StatusInternalServerError, "Failed to generate upload URL")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{UploadURL: uploadURL, VideoID: video.ID})
}

func (g *Gateway) handleQueueJob(w http.ResponseWriter, r *http.Request) {
	var job queue.TranscodeJob

	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if job.VideoID == 0 || job.Key == "" {
		writeError(w, http.StatusBadRequest, "videoId and key are required")
		return
	}

	if err := g.queue.Push(r.Context(), queue.JobQueue, job); err != nil {
		log.WithError(err).Error("unable to enqueue job")
		writeError(w, http.StatusInternalServerError, "Failed to queue job")
		return
	}

	log.WithFields(log.Fields{
		"videoId": job.VideoID,
		"key":     job.Key,
	}).Info("job queued")

	writeJSON(w, http.StatusOK, map[string]string{"message": "Job queued"})
}
