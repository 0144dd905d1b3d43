package catalog

import (
	"context"
	"time"
)

// Video lifecycle: created 'pending' when an upload is registered, flipped
// to 'ready' by the pipeline in the same update that records the master
// playlist key. No other transitions.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
)

type Video struct {
	ID             int64       `json:"id"`
	Title          string      `json:"title"`
	Key            string      `json:"key"`
	Status         string      `json:"status"`
	MasterPlaylist *string     `json:"masterPlaylist"`
	CreatedAt      time.Time   `json:"createdAt"`
	Renditions     []Rendition `json:"resolutions,omitempty"`
}

// Rendition is one resolution variant of a video. Rows are immutable and
// unique per (video, resolution).
type Rendition struct {
	VideoID    int64  `json:"videoId"`
	Resolution string `json:"resolution"`
	S3Key      string `json:"s3Key"`
}

type Catalog interface {
	CreateVideo(ctx context.Context, title, key string) (Video, error)
	GetVideo(ctx context.Context, id int64) (Video, bool, error)
	ListVideos(ctx context.Context) ([]Video, error)

	// CreateRendition is idempotent: inserting an existing
	// (video, resolution) pair is a no-op.
	CreateRendition(ctx context.Context, rendition Rendition) error
	GetRendition(ctx context.Context, videoID int64, resolution string) (Rendition, bool, error)

	// MarkReady sets status and master playlist key in one atomic write.
	MarkReady(ctx context.Context, videoID int64, masterKey string) error
}
