package export

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aouyang1/go-demand/store"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const DefaultMeasurement = "demand_forecast"

type InfluxConfig struct {
	URL         string `json:"url"`
	Token       string `json:"token"`
	Org         string `json:"org"`
	Bucket      string `json:"bucket"`
	Measurement string `json:"measurement"`
}

// Influx writes one point per forecast day tagged with the model and run id
type Influx struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
}

func NewInflux(cfg InfluxConfig) *Influx {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &Influx{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: measurement,
	}
}

func (s *Influx) Export(ctx context.Context, run *store.Run) error {
	if len(run.Points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	points := make([]*write.Point, 0, len(run.Points))
	for _, p := range run.Points {
		wp := write.NewPointWithMeasurement(s.measurement).
			AddTag("model", run.Model).
			AddTag("run_id", run.ID.String()).
			AddField("value", p.Value).
			SetTime(p.Date)
		if run.Bounded {
			wp = wp.AddField("lower", p.Lower).AddField("upper", p.Upper)
		}
		points = append(points, wp)
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func (s *Influx) Close() error {
	s.client.Close()
	return nil
}
