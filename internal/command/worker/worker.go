package worker

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vodforge/internal/command/root"
	"vodforge/internal/encoder"
	"vodforge/internal/ladder"
	"vodforge/internal/metric"
	"vodforge/internal/pipeline"
	"vodforge/internal/publisher"
	"vodforge/internal/queue"
	"vodforge/internal/signal"
)

var (
	logger = log.WithFields(log.Fields{
		"app": "worker",
	})
)

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.PersistentFlags().String("video-codec", "h264", "Video codec")
	cmd.PersistentFlags().String("audio-codec", "aac", "Audio codec")
	cmd.PersistentFlags().Int("segment-seconds", 6, "HLS segment duration in seconds")
	cmd.PersistentFlags().Bool("purge-failed", false, "Delete uploaded objects when a job fails")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		logger.WithError(err).Fatal("flag binding failed")
	}
}

var cmd = &cobra.Command{
	Use:   "worker",
	Short: "Transcode queued videos",
	Long:  `VodForge Worker: consume transcode jobs and produce segmented HLS renditions`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Info("starting worker")

		cmpt := root.GetComponent(false, true, true, true, true)

		rungs, err := ladder.Load(viper.GetString("ladder"))

		if err != nil {
			logger.WithError(err).Fatal("unable to load ladder")
		}

		w := worker{
			queue:  cmpt.Queue,
			metric: cmpt.Metric,
			orchestrator: &pipeline.Orchestrator{
				Bucket:  cmpt.Bucket,
				Catalog: cmpt.Catalog,
				Encoder: encoder.New(encoder.Config{
					VideoCodec:     viper.GetString("video-codec"),
					AudioCodec:     viper.GetString("audio-codec"),
					SegmentSeconds: viper.GetInt("segment-seconds"),
				}),
				Publisher:   publisher.New(cmpt.Bucket),
				Ladder:      rungs,
				ScratchRoot: viper.GetString("scratch"),
				PurgeFailed: viper.GetBool("purge-failed"),
			},
		}

		w.Run()
	},
}

type worker struct {
	queue        queue.Queue
	metric       metric.Client
	orchestrator *pipeline.Orchestrator
}

func (w *worker) Run() {
	ctx := signal.WatchInterrupt(context.Background(), 25*time.Second)

	logger.Info("worker started")

	go w.metric.Ticker(context.Background(), 1*time.Second)

	hostname, _ := os.Hostname()

	counterMetric := &metric.CounterMetric{
		RowMetric: metric.RowMetric{Name: "vodforge_worker_jobs_total", Tags: metric.Tags{"hostname": hostname}},
	}

	gaugeMetric := &metric.GaugeMetric{
		RowMetric: metric.RowMetric{Name: "vodforge_worker_jobs_active", Tags: metric.Tags{"hostname": hostname}},
	}

	errorsMetric := &metric.CounterMetric{
		RowMetric: metric.RowMetric{Name: "vodforge_worker_jobs_errors", Tags: metric.Tags{"hostname": hostname}},
	}

	w.metric.Add(counterMetric)
	w.metric.Add(gaugeMetric)
	w.metric.Add(errorsMetric)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
			var job queue.TranscodeJob
			ok, err := w.queue.Pop(ctx, queue.JobQueue, &job)

			if err != nil {
				if errors.Is(err, context.Canceled) {
					break loop
				}

				logger.WithError(err).Errorf("unable to consume %s", queue.JobQueue)
				time.Sleep(5 * time.Second)
				continue
			}

			if !ok {
				gaugeMetric.Gauge = 0
				continue
			}

			counterMetric.Counter++
			gaugeMetric.Gauge = 1

			started := time.Now()

			// Failed jobs are dropped, not requeued: the queue already
			// gives at-least-once delivery and recovery is an external
			// re-enqueue of the same payload.
			if err = w.orchestrator.Process(ctx, job); err != nil {
				errorsMetric.Counter++
				logger.WithError(err).WithFields(log.Fields{
					"videoId": job.VideoID,
					"key":     job.Key,
				}).Error("job failed")
				continue
			}

			durationMetric := &metric.DurationMetric{
				RowMetric: metric.RowMetric{Name: "vodforge_worker_job_duration", Tags: metric.Tags{"hostname": hostname}},
				Duration:  time.Since(started),
			}
			w.metric.Send(durationMetric.Metric())
		}
	}

	logger.Info("worker stopped")
}
