package server

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vodforge/internal/command/root"
	"vodforge/internal/metric"
	"vodforge/internal/server"
	"vodforge/internal/signing"
)

var (
	logger = log.WithFields(log.Fields{
		"app": "server",
	})
)

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.PersistentFlags().String("listen", ":4000", "Playback API listen address")
	cmd.PersistentFlags().Int64("rate-limit", 10, "Requests per window per client on rate-limited routes")
	cmd.PersistentFlags().Duration("rate-window", time.Minute, "Rate limit window")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		logger.WithError(err).Fatal("flag binding failed")
	}
}

var cmd = &cobra.Command{
	Use:   "server",
	Short: "Serve signed playback manifests",
	Long:  `VodForge Server: serve the catalog and rewrite playlists into time-limited signed URLs`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Info("starting server")

		cmpt := root.GetComponent(true, false, true, true, true)

		go cmpt.Metric.Ticker(context.Background(), 10*time.Second)

		hostname, _ := os.Hostname()
		requestsMetric := &metric.CounterMetric{
			RowMetric: metric.RowMetric{Name: "vodforge_server_requests", Tags: metric.Tags{"hostname": hostname}},
		}
		cmpt.Metric.Add(requestsMetric)

		signer := &signing.Signer{
			Bucket: cmpt.Bucket,
			TTL:    viper.GetDuration("sign-ttl"),
		}

		limiter := &server.RateLimiter{
			DB:     cmpt.DB,
			Window: viper.GetDuration("rate-window"),
			Max:    viper.GetInt64("rate-limit"),
		}

		playback := server.NewPlayback(cmpt.Catalog, signer, limiter)

		server.Listen(viper.GetString("listen"), server.CountRequests(requestsMetric, playback.Handler()))
	},
}
