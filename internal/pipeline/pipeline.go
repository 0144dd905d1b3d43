package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vodforge/internal/catalog"
	"vodforge/internal/encoder"
	"vodforge/internal/ladder"
	"vodforge/internal/manifest"
	"vodforge/internal/publisher"
	"vodforge/internal/queue"
	"vodforge/internal/storage"
	"vodforge/internal/util"
)

const sourceFileName = "original.mp4"

// Encoder produces one segmented rendition of sourceFile in outDir.
type Encoder interface {
	Encode(ctx context.Context, sourceFile string, rung ladder.Rung, outDir string) (playlistPath string, err error)
}

// Publisher uploads every file of a rendition directory under prefix.
type Publisher interface {
	Publish(ctx context.Context, localDir string, prefix string) (keys []string, err error)
}

// Orchestrator drives one transcode job end to end: download, sequential
// ladder encode+publish, master playlist, catalog flip. Any failure aborts
// the job without rollback; re-enqueueing the same job is the recovery
// path, and deterministic keys plus the rendition uniqueness constraint
// make that safe.
type Orchestrator struct {
	Bucket    storage.Bucket
	Catalog   catalog.Catalog
	Encoder   Encoder
	Publisher Publisher
	Ladder    []ladder.Rung

	// ScratchRoot defaults to the system temp dir.
	ScratchRoot string

	// PurgeFailed removes the job's uploaded objects when it fails,
	// instead of leaving inert orphans for the next run to overwrite.
	PurgeFailed bool
}

func (o *Orchestrator) Process(ctx context.Context, job queue.TranscodeJob) (err error) {
	logger := log.WithFields(log.Fields{
		"videoId": job.VideoID,
		"key":     job.Key,
	})

	logger.Info("processing job")

	root := o.ScratchRoot

	if root == "" {
		root = os.TempDir()
	}

	scratch := filepath.Join(root, fmt.Sprintf("%d_%d", time.Now().UnixNano(), job.VideoID))

	if err = os.MkdirAll(scratch, 0o755); err != nil {
		return errors.Wrap(err, "unable to create scratch directory")
	}

	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			logger.WithError(rmErr).Error("unable to remove scratch directory")
		}

		if err != nil && o.PurgeFailed {
			if purgeErr := o.Bucket.Delete(ctx, manifest.VideoPrefix(job.VideoID)); purgeErr != nil {
				logger.WithError(purgeErr).Error("unable to purge partial artifacts")
			}
		}
	}()

	source := filepath.Join(scratch, sourceFileName)

	if err = util.Download(ctx, o.Bucket, job.Key, source); err != nil {
		return errors.Wrapf(err, "unable to download source '%s'", job.Key)
	}

	if meta, probeErr := encoder.Probe(ctx, source); probeErr != nil {
		logger.WithError(probeErr).Debug("source probe failed")
	} else {
		logger.WithField("duration", meta.Format.Duration).Info("source downloaded")
	}

	for _, rung := range o.Ladder {
		if err = o.processRung(ctx, job, rung, source, scratch); err != nil {
			return err
		}
	}

	masterKey := manifest.MasterKey(job.VideoID)
	master := manifest.BuildMaster(job.VideoID, o.Ladder)

	if err = o.Bucket.Store(ctx, masterKey, []byte(master), publisher.ContentType(masterKey)); err != nil {
		return errors.Wrap(err, "unable to store master playlist")
	}

	if err = o.Catalog.MarkReady(ctx, job.VideoID, masterKey); err != nil {
		return errors.Wrap(err, "unable to finalize catalog entry")
	}

	logger.WithField("master", masterKey).Info("video ready")

	return nil
}

func (o *Orchestrator) processRung(ctx context.Context, job queue.TranscodeJob, rung ladder.Rung, source string, scratch string) error {
	logger := log.WithFields(log.Fields{
		"videoId": job.VideoID,
		"label":   rung.Label,
	})

	// Re-delivered jobs skip rungs that already went through; the catalog
	// primary key backstops the race between two workers.
	if _, ok, err := o.Catalog.GetRendition(ctx, job.VideoID, rung.Label); err != nil {
		return errors.Wrap(err, "unable to check rendition")
	} else if ok {
		logger.Info("rendition already recorded, skipping")
		return nil
	}

	outDir := filepath.Join(scratch, rung.Label)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "unable to create rendition directory")
	}

	if _, err := o.Encoder.Encode(ctx, source, rung, outDir); err != nil {
		return err
	}

	if _, err := o.Publisher.Publish(ctx, outDir, manifest.RenditionPrefix(job.VideoID, rung.Label)); err != nil {
		return err
	}

	rendition := catalog.Rendition{
		VideoID:    job.VideoID,
		Resolution: rung.Label,
		S3Key:      manifest.VariantKey(job.VideoID, rung.Label),
	}

	if err := o.Catalog.CreateRendition(ctx, rendition); err != nil {
		return errors.Wrap(err, "unable to record rendition")
	}

	logger.Info("rendition ready")

	return nil
}
