// Package metrics records forecast, cache and http activity in Prometheus collectors
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder owns the collectors for the demand service. A nil Recorder discards every
// observation.
type Recorder struct {
	forecastRuns     *prometheus.CounterVec
	forecastSteps    *prometheus.CounterVec
	forecastDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg. If reg is nil, the default registerer is
// used. Collectors that are already registered are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		forecastRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_forecast_runs_total",
			Help: "Total number of forecast runs",
		}, []string{"model", "outcome"}),
		forecastSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_forecast_steps_total",
			Help: "Total number of forecast days produced",
		}, []string{"model"}),
		forecastDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "demand_forecast_duration_seconds",
			Help:    "Wall time of a forecast run",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_http_requests_total",
			Help: "Total number of http requests",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "demand_http_request_duration_seconds",
			Help:    "Latency of http requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_cache_lookups_total",
			Help: "Total number of cache lookups",
		}, []string{"result"}),
	}

	var err error
	if r.forecastRuns, err = register(reg, r.forecastRuns); err != nil {
		return nil, err
	}
	if r.forecastSteps, err = register(reg, r.forecastSteps); err != nil {
		return nil, err
	}
	if r.forecastDuration, err = register(reg, r.forecastDuration); err != nil {
		return nil, err
	}
	if r.httpRequests, err = register(reg, r.httpRequests); err != nil {
		return nil, err
	}
	if r.httpDuration, err = register(reg, r.httpDuration); err != nil {
		return nil, err
	}
	if r.cacheLookups, err = register(reg, r.cacheLookups); err != nil {
		return nil, err
	}
	return r, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveForecast records a finished forecast run
func (r *Recorder) ObserveForecast(model string, steps int, d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.forecastRuns.WithLabelValues(model, outcome).Inc()
	if err == nil {
		r.forecastSteps.WithLabelValues(model).Add(float64(steps))
	}
	r.forecastDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveRequest records a served http request
func (r *Recorder) ObserveRequest(route string, code int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveCache records whether a cache lookup was served without loading
func (r *Recorder) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes the metrics gathered by g. A nil gatherer uses the default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
