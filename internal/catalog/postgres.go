package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Postgres stores the video catalog in two tables, created on first use.
// The (video_id, resolution) primary key is what makes re-processing a
// duplicate job harmless.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)

	if err != nil {
		return nil, errors.Wrap(err, "parse postgres config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, errors.Wrap(err, "open postgres pool")
	}

	store := &Postgres{pool: pool}

	if err = store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS videos (
			id              BIGSERIAL PRIMARY KEY,
			title           TEXT NOT NULL DEFAULT '',
			key             TEXT NOT NULL,
			status          TEXT NOT NULL DEFAULT 'pending',
			master_playlist TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS video_renditions (
			video_id   BIGINT NOT NULL REFERENCES videos(id),
			resolution TEXT NOT NULL,
			s3_key     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (video_id, resolution)
		)`,
	}

	for _, statement := range statements {
		if _, err := p.pool.Exec(ctx, statement); err != nil {
			return errors.Wrap(err, "ensure catalog schema")
		}
	}

	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) CreateVideo(ctx context.Context, title, key string) (Video, error) {
	row := p.pool.QueryRow(ctx, `
INSERT INTO videos (title, key, status)
VALUES ($1, $2, $3)
RETURNING id, title, key, status, master_playlist, created_at
`, title, key, StatusPending)

	var video Video

	if err := row.Scan(&video.ID, &video.Title, &video.Key, &video.Status, &video.MasterPlaylist, &video.CreatedAt); err != nil {
		return Video{}, errors.Wrap(err, "create video")
	}

	return video, nil
}

func (p *Postgres) GetVideo(ctx context.Context, id int64) (Video, bool, error) {
	row := p.pool.QueryRow(ctx, `
SELECT id, title, key, status, master_playlist, created_at
FROM videos
WHERE id = $1
`, id)

	var video Video

	if err := row.Scan(&video.ID, &video.Title, &video.Key, &video.Status, &video.MasterPlaylist, &video.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Video{}, false, nil
		}

		return Video{}, false, errors.Wrap(err, "get video")
	}

	renditions, err := p.renditions(ctx, id)

	if err != nil {
		return Video{}, false, err
	}

	video.Renditions = renditions
	return video, true, nil
}

func (p *Postgres) ListVideos(ctx context.Context) ([]Video, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, title, key, status, master_playlist, created_at
FROM videos
ORDER BY created_at DESC
`)

	if err != nil {
		return nil, errors.Wrap(err, "list videos")
	}

	defer rows.Close()

	var videos []Video

	for rows.Next() {
		var video Video

		if err = rows.Scan(&video.ID, &video.Title, &video.Key, &video.Status, &video.MasterPlaylist, &video.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan video")
		}

		videos = append(videos, video)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list videos")
	}

	for i := range videos {
		if videos[i].Renditions, err = p.renditions(ctx, videos[i].ID); err != nil {
			return nil, err
		}
	}

	return videos, nil
}

func (p *Postgres) renditions(ctx context.Context, videoID int64) ([]Rendition, error) {
	rows, err := p.pool.Query(ctx, `
SELECT video_id, resolution, s3_key
FROM video_renditions
WHERE video_id = $1
ORDER BY created_at
`, videoID)

	if err != nil {
		return nil, errors.Wrap(err, "list renditions")
	}

	defer rows.Close()

	var renditions []Rendition

	for rows.Next() {
		var rendition Rendition

		if err = rows.Scan(&rendition.VideoID, &rendition.Resolution, &rendition.S3Key); err != nil {
			return nil, errors.Wrap(err, "scan rendition")
		}

		renditions = append(renditions, rendition)
	}

	return renditions, rows.Err()
}

func (p *Postgres) CreateRendition(ctx context.Context, rendition Rendition) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO video_renditions (video_id, resolution, s3_key)
VALUES ($1, $2, $3)
ON CONFLICT (video_id, resolution) DO NOTHING
`, rendition.VideoID, rendition.Resolution, rendition.S3Key)

	return errors.Wrap(err, "create rendition")
}

func (p *Postgres) GetRendition(ctx context.Context, videoID int64, resolution string) (Rendition, bool, error) {
	row := p.pool.QueryRow(ctx, `
SELECT video_id, resolution, s3_key
FROM video_renditions
WHERE video_id = $1 AND resolution = $2
`, videoID, resolution)

	var rendition Rendition

	if err := row.Scan(&rendition.VideoID, &rendition.Resolution, &rendition.S3Key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rendition{}, false, nil
		}

		return Rendition{}, false, errors.Wrap(err, "get rendition")
	}

	return rendition, true, nil
}

func (p *Postgres) MarkReady(ctx context.Context, videoID int64, masterKey string) error {
	tag, err := p.pool.Exec(ctx, `
UPDATE videos
SET status = $2, master_playlist = $3
WHERE id = $1
`, videoID, StatusReady, masterKey)

	if err != nil {
		return errors.Wrap(err, "mark video ready")
	}

	if tag.RowsAffected() == 0 {
		return errors.Errorf("video %d not found", videoID)
	}

	return nil
}
