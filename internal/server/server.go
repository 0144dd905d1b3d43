// Package server holds the two HTTP surfaces: the playback API that serves
// signed manifests and the upload gateway that registers videos and
// enqueues transcode jobs.
package server

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vodforge/internal/catalog"
	"vodforge/internal/signing"
)

const manifestContentType = "application/vnd.apple.mpegurl"

// Playback serves catalog listings and signed manifests. It never exposes
// raw object keys: every playlist leaves rewritten into expiring URLs.
type Playback struct {
	catalog catalog.Catalog
	signer  *signing.Signer
	limiter *RateLimiter
}

func NewPlayback(cat catalog.Catalog, signer *signing.Signer, limiter *RateLimiter) *Playback {
	return &Playback{catalog: cat, signer: signer, limiter: limiter}
}

func (p *Playback) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /videos", p.limiter.Middleware(http.HandlerFunc(p.handleList)))
	mux.HandleFunc("GET /videos/{id}/master", p.handleMaster)
	mux.HandleFunc("GET /videos/{id}/resolution/{label}", p.handleResolution)

	return mux
}

func (p *Playback) handleList(w http.ResponseWriter, r *http.Request) {
	videos, err := p.catalog.ListVideos(r.Context())

	if err != nil {
		log.WithError(err).Error("unable to list videos")
		writeError(w, http.StatusInternalServerError, "Failed to fetch videos")
		return
	}

	if videos == nil {
		videos = []catalog.Video{}
	}

	writeJSON(w, http.StatusOK, videos)
}

func (p *Playback) handleMaster(w http.ResponseWriter, r *http.Request) {
	videoID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)

	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid video id")
		return
	}

	video, ok, err := p.catalog.GetVideo(r.Context(), videoID)

	if err != nil {
		log.WithError(err).Error("unable to load video")
		writeError(w, http.StatusInternalServerError, "Failed to get master playlist")
		return
	}

	if !ok || video.MasterPlaylist == nil {
		writeError(w, http.StatusNotFound, "Video or master playlist not found")
		return
	}

	p.renderManifest(w, r, *video.MasterPlaylist, "Failed to get master playlist")
}

func (p *Playback) handleResolution(w http.ResponseWriter, r *http.Request) {
	videoID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)

	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid video id")
		return
	}

	if _, ok, err := p.catalog.GetVideo(r.Context(), videoID); err != nil {
		log.WithError(err).Error("unable to load video")
		writeError(w, http.StatusInternalServerError, "Failed to get resolution playlist")
		return
	} else if !ok {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}

	label := r.PathValue("label")
	rendition, ok, err := p.catalog.GetRendition(r.Context(), videoID, label)

	if err != nil {
		log.WithError(err).Error("unable to load rendition")
		writeError(w, http.StatusInternalServerError, "Failed to get resolution playlist")
		return
	}

	if !ok {
		writeError(w, http.StatusNotFound, "Resolution not found")
		return
	}

	p.renderManifest(w, r, rendition.S3Key, "Failed to get resolution playlist")
}

func (p *Playback) renderManifest(w http.ResponseWriter, r *http.Request, key string, failMessage string) {
	signed, err := p.signer.Render(r.Context(), key)

	if err != nil {
		status := http.StatusInternalServerError

		if errors.Is(err, signing.ErrManifestNotFound) {
			status = http.StatusBadGateway
		}

		log.WithError(err).WithField("manifest", key).Error("unable to render manifest")
		writeError(w, status, failMessage)
		return
	}

	w.Header().Set("Content-Type", manifestContentType)
	_, _ = w.Write([]byte(signed))
}
