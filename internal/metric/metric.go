package metric

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
)

type Client interface {
	Add(metric Metric)
	Send(points ...*influxdb2.Point)
	Ticker(ctx context.Context, duration time.Duration)
}

// Metric renders one measurement point; registered metrics are flushed by
// the client's ticker.
type Metric interface {
	Metric() *influxdb2.Point
}

type Tags map[string]string

type Fields map[string]interface{}

type RowMetric struct {
	Name string
	Tags Tags
}

type CounterMetric struct {
	RowMetric
	Counter int64
}

func (c *CounterMetric) Metric() *influxdb2.Point {
	return influxdb2.NewPoint(c.Name, c.Tags, Fields{"count": c.Counter}, time.Now())
}

type GaugeMetric struct {
	RowMetric
	Gauge int64
}

func (g *GaugeMetric) Metric() *influxdb2.Point {
	return influxdb2.NewPoint(g.Name, g.Tags, Fields{"gauge": g.Gauge}, time.Now())
}

type DurationMetric struct {
	RowMetric
	Duration time.Duration
}

func (d *DurationMetric) Metric() *influxdb2.Point {
	return influxdb2.NewPoint(d.Name, d.Tags, Fields{"seconds": d.Duration.Seconds()}, time.Now())
}
