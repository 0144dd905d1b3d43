package autoscaler

import (
	"context"
	"os"
	"time"

	rabbithole "github.com/michaelklishin/rabbit-hole/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vodforge/internal/cloud"
	"vodforge/internal/command/root"
	"vodforge/internal/metric"
	"vodforge/internal/queue"
	"vodforge/internal/signal"
)

var (
	logger = log.WithFields(log.Fields{
		"app": "autoscaler",
	})
)

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.PersistentFlags().Int("max-instances", 5, "Maximum number of worker instances")

	cmd.PersistentFlags().String("gcp-project", "", "GCP project")
	cmd.PersistentFlags().String("gcp-zone", "us-central1-a", "GCP zone")
	cmd.PersistentFlags().String("gcp-group", "vodforge-workers", "GCP instance group")
	cmd.PersistentFlags().String("gcp-prefix", "vodforge-worker-", "GCP instance name prefix")
	cmd.PersistentFlags().String("gcp-machine-type", "n1-standard-1", "GCP machine type")
	cmd.PersistentFlags().String("gcp-image", "", "Worker container image")
	cmd.PersistentFlags().String("gcp-boot-disk", "projects/cos-cloud/global/images/family/cos-stable", "Boot disk image")
	cmd.PersistentFlags().Bool("gcp-preemptible", true, "GCP preemptible instances")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		logger.WithError(err).Fatal("flag binding failed")
	}
}

var cmd = &cobra.Command{
	Use:   "autoscaler",
	Short: "Scale the number of worker instances",
	Long:  `VodForge AutoScaler: scale transcode worker instances with the depth of the job queue`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Info("starting autoscaler")

		loadQueue := viper.GetString("queue-driver") == "redis"
		cmpt := root.GetComponent(false, loadQueue, false, false, true)

		as := autoscaler{
			queue:  cmpt.Queue,
			metric: cmpt.Metric,
		}

		as.Run()
	},
}

type autoscaler struct {
	queue  queue.Queue
	metric metric.Client
}

// pending returns the number of jobs waiting in the queue, using the
// management API when the amqp driver is active.
func (a *autoscaler) pending(ctx context.Context) (int, error) {
	if a.queue != nil {
		n, err := a.queue.Len(ctx, queue.JobQueue)
		return int(n), err
	}

	rmqc, err := rabbithole.NewClient(viper.GetString("rabbitmq-api"), viper.GetString("rabbitmq-user"), viper.GetString("rabbitmq-pass"))

	if err != nil {
		return 0, err
	}

	info, err := rmqc.GetQueue("/", queue.JobQueue)

	if err != nil {
		return 0, err
	}

	return info.MessagesReady, nil
}

func (a *autoscaler) Run() {
	ctx := signal.WatchInterrupt(context.Background(), 10*time.Second)

	gcpProject := viper.GetString("gcp-project")
	gcpZone := viper.GetString("gcp-zone")
	gcpGroup := viper.GetString("gcp-group")

	provider, err := cloud.NewGCP(ctx, cloud.GCPConfig{
		Project:  gcpProject,
		Zone:     gcpZone,
		Group:    gcpGroup,
		Image:    viper.GetString("gcp-image"),
		BootDisk: viper.GetString("gcp-boot-disk"),
		WorkerEnv: []cloud.WorkerEnv{
			{Name: "QUEUE_DRIVER", Value: viper.GetString("queue-driver")},
			{Name: "REDIS", Value: viper.GetString("redis")},
			{Name: "AMQP", Value: viper.GetString("amqp")},
			{Name: "POSTGRES_DSN", Value: viper.GetString("postgres-dsn")},
			{Name: "STORAGE_DRIVER", Value: viper.GetString("storage-driver")},
			{Name: "AWS_BUCKET", Value: viper.GetString("aws-bucket")},
			{Name: "AWS_REGION", Value: viper.GetString("aws-region")},
			{Name: "GCS_BUCKET", Value: viper.GetString("gcs-bucket")},
		},
	})

	if err != nil {
		logger.WithError(err).Fatal("cloud provider")
	}

	logger.WithFields(log.Fields{
		"project": gcpProject,
		"zone":    gcpZone,
		"group":   gcpGroup,
	}).Info("connected to GCP")

	maxInstances := viper.GetInt("max-instances")
	logger.Infof("maximum number of instances: %d", maxInstances)

	go a.metric.Ticker(context.Background(), 10*time.Second)

	hostname, _ := os.Hostname()

	depthMetric := &metric.GaugeMetric{
		RowMetric: metric.RowMetric{Name: "vodforge_queue_depth", Tags: metric.Tags{"hostname": hostname}},
	}

	instancesMetric := &metric.GaugeMetric{
		RowMetric: metric.RowMetric{Name: "vodforge_worker_instances", Tags: metric.Tags{"hostname": hostname}},
	}

	a.metric.Add(depthMetric)
	a.metric.Add(instancesMetric)

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	logger.Info("autoscaler started")

loop:
	for {
		go func() {
			ready, err := a.pending(ctx)

			if err != nil {
				logger.WithError(err).Error("get queue depth")
				return
			}

			count, err := provider.Count(ctx)

			if err != nil {
				logger.WithError(err).Error("count instances")
				return
			}

			depthMetric.Gauge = int64(ready)
			instancesMetric.Gauge = int64(count)

			logger.WithFields(log.Fields{
				"instances": count,
				"ready":     ready,
			}).Debug("scaling check")

			if ready > 0 {
				if count < maxInstances {
					wanted := maxInstances

					if ready < maxInstances {
						wanted = ready
					}

					if wanted > count {
						for i := 0; i < wanted-count; i++ {
							_, err = provider.AddInstance(ctx, viper.GetString("gcp-prefix"), viper.GetString("gcp-machine-type"), viper.GetBool("gcp-preemptible"))

							if err != nil {
								logger.WithError(err).Error("increase instance count")
								return
							}
						}

						logger.WithFields(log.Fields{
							"previous": count,
							"current":  wanted,
						}).Info("increased number of instances")
					}
				}
			} else if count > 0 {
				if err = provider.DeleteAll(ctx); err != nil {
					logger.WithError(err).Error("delete all instances")
					return
				}

				logger.WithFields(log.Fields{
					"previous": count,
					"current":  0,
				}).Info("decreased number of instances")
			}
		}()

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			continue
		}
	}

	logger.Info("autoscaler stopped")
}
