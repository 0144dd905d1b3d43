package gateway

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
)

var (
	logger = log.WithFields(log.Fields{
		"app": "gateway",
	})
)

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.PersistentFlags().String("gateway-listen", ":3000", "Upload gateway listen address")
	cmd.PersistentFlags().Int64("gateway-rate-limit", 10, "Requests per window per client on upload registration")
	cmd.PersistentFlags().Duration("gateway-rate-window", time.Minute, "Rate limit window")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		logger.WithError(err).Fatal("flag binding failed")
	}
}

var cmd = &cobra.Command{
	Use:   "gateway",
	Short: "Register uploads and enqueue transcode jobs",
	Long:  `VodForge Gateway: hand out signed upload URLs, create catalog entries and push transcode jobs`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Info("starting gateway")

		cmpt := root.GetComponent(true, true, true, true, true)

		go cmpt.Metric.Ticker(context.Background(), 10*time.Second)

		hostname, _ := os.Hostname()
		requestsMetric := &metric.CounterMetric{
			RowMetric: metric.RowMetric{Name: "vodforge_gateway_requests", Tags: metric.Tags{"hostname": hostname}},
		}
		cmpt.Metric.Add(requestsMetric)

		limiter := &server.RateLimiter{
			DB:     cmpt.DB,
			Window: viper.GetDuration("gateway-rate-window"),
			Max:    viper.GetInt64("gateway-rate-limit"),
		}

		gw := server.NewGateway(cmpt.Catalog, cmpt.Bucket, cmpt.Queue, limiter, viper.GetDuration("upload-ttl"))

		server.Listen(viper.GetString("gateway-listen"), server.CountRequests(requestsMetric, gw.Handler()))
	},
}
