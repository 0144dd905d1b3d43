package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Memory mirrors the Postgres semantics (uniqueness, atomic ready flip) for
// tests that exercise the pipeline and the HTTP handlers.
type Memory struct {
	mu         sync.Mutex
	nextID     int64
	videos     map[int64]Video
	renditions map[int64][]Rendition
}

func NewMemory() *Memory {
	return &Memory{
		nextID:     1,
		videos:     make(map[int64]Video),
		renditions: make(map[int64][]Rendition),
	}
}

func (m *Memory) CreateVideo(ctx context.Context, title, key string) (Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	video := Video{
		ID:        m.nextID,
		Title:     title,
		Key:       key,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.videos[video.ID] = video
	return video, nil
}

func (m *Memory) GetVideo(ctx context.Context, id int64) (Video, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	video, ok := m.videos[id]

	if !ok {
		return Video{}, false, nil
	}

	video.Renditions = append([]Rendition(nil), m.renditions[id]...)
	return video, true, nil
}

func (m *Memory) ListVideos(ctx context.Context) ([]Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	videos := make([]Video, 0, len(m.videos))

	for id := m.nextID - 1; id >= 1; id-- {
		video, ok := m.videos[id]

		if !ok {
			continue
		}

		video.Renditions = append([]Rendition(nil), m.renditions[id]...)
		videos = append(videos, video)
	}

	return videos, nil
}

func (m *Memory) CreateRendition(ctx context.Context, rendition Rendition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.videos[rendition.VideoID]; !ok {
		return errors.Errorf("video %d not found", rendition.VideoID)
	}

	for _, existing := range m.renditions[rendition.VideoID] {
		if existing.Resolution == rendition.Resolution {
			return nil
		}
	}

	m.renditions[rendition.VideoID] = append(m.renditions[rendition.VideoID], rendition)
	return nil
}

func (m *Memory) GetRendition(ctx context.Context, videoID int64, resolution string) (Rendition, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rendition := range m.renditions[videoID] {
		if rendition.Resolution == resolution {
			return rendition, true, nil
		}
	}

	return Rendition{}, false, nil
}

func (m *Memory) MarkReady(ctx context.Context, videoID int64, masterKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	video, ok := m.videos[videoID]

	if !ok {
		return errors.Errorf("video %d not found", videoID)
	}

	video.Status = StatusReady
	video.MasterPlaylist = &masterKey
	m.videos[videoID] = video
	return nil
}
