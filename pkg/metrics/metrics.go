// Package metrics provides run metrics for tap-dayforce using Prometheus.
//
// # Overview
//
// A Collector owns its own registry so one process invocation produces one
// self-contained set of metrics:
//   - records emitted and skipped per stream
//   - HTTP requests per endpoint and status, with latency
//   - retries per reason
//   - job timers per stream sync
//
// Because a tap is a short-lived batch process there is no scrape endpoint;
// WriteTextfile dumps the registry in the text exposition format for a
// node_exporter textfile collector. Job timers and record counters are also
// logged as METRIC entries so they are visible in the run log.
//
// # Basic Usage
//
//	collector := metrics.NewCollector()
//	job := collector.StartJob("sync_employees")
//	collector.RecordEmitted("employees")
//	job.Stop(nil)
//	_ = collector.WriteTextfile("/var/lib/node_exporter/tap_dayforce.prom")
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
)

const namespace = "tap_dayforce"

// Collector wraps the Prometheus metrics of one run.
type Collector struct {
	registry *prometheus.Registry

	recordsEmitted  *prometheus.CounterVec   // stream
	recordsSkipped  *prometheus.CounterVec   // stream, reason
	httpRequests    *prometheus.CounterVec   // endpoint, status
	requestDuration *prometheus.HistogramVec // endpoint
	retries         *prometheus.CounterVec   // reason
	jobDuration     *prometheus.HistogramVec // job, status
	lastSuccess     *prometheus.GaugeVec     // job

	mu     sync.Mutex
	counts map[string]int64 // records emitted per stream, for METRIC logs
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		counts:   make(map[string]int64),
		recordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "Records written to the output stream",
		}, []string{"stream"}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Records dropped because of data quality problems",
		}, []string{"stream", "reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Dayforce API requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Dayforce API request latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_retries_total",
			Help:      "Retried Dayforce API requests by reason",
		}, []string{"reason"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Stream sync duration",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"job", "status"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful stream sync",
		}, []string{"job"}),
	}

	c.registry.MustRegister(
		c.recordsEmitted,
		c.recordsSkipped,
		c.httpRequests,
		c.requestDuration,
		c.retries,
		c.jobDuration,
		c.lastSuccess,
	)

	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordEmitted counts one record written for stream.
func (c *Collector) RecordEmitted(stream string) {
	c.recordsEmitted.WithLabelValues(stream).Inc()

	c.mu.Lock()
	c.counts[stream]++
	c.mu.Unlock()
}

// RecordSkipped counts one record dropped for stream.
func (c *Collector) RecordSkipped(stream, reason string) {
	c.recordsSkipped.WithLabelValues(stream, reason).Inc()
}

// ObserveRequest records one HTTP round trip. status is 0 for transport failures.
func (c *Collector) ObserveRequest(endpoint string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.httpRequests.WithLabelValues(endpoint, label).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordRetry counts one retry.
func (c *Collector) RecordRetry(reason string) {
	c.retries.WithLabelValues(reason).Inc()
}

// Emitted returns how many records were counted for stream.
func (c *Collector) Emitted(stream string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[stream]
}

// LogCounter writes a METRIC counter entry for stream.
func (c *Collector) LogCounter(stream string) {
	logger.Get().Info("METRIC",
		zap.String("type", "counter"),
		zap.String("metric", "record_count"),
		zap.Int64("value", c.Emitted(stream)),
		zap.String("endpoint", stream))
}

// WriteTextfile writes the registry in text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// JobTimer measures one job.
type JobTimer struct {
	collector *Collector
	job       string
	start     time.Time
}

// StartJob starts timing job.
func (c *Collector) StartJob(job string) *JobTimer {
	return &JobTimer{collector: c, job: job, start: time.Now()}
}

// Stop records the job duration with a status derived from err and logs a METRIC entry.
func (t *JobTimer) Stop(err error) time.Duration {
	d := time.Since(t.start)
	status := "succeeded"
	if err != nil {
		status = "failed"
	} else {
		t.collector.lastSuccess.WithLabelValues(t.job).SetToCurrentTime()
	}
	t.collector.jobDuration.WithLabelValues(t.job, status).Observe(d.Seconds())

	logger.Get().Info("METRIC",
		zap.String("type", "timer"),
		zap.String("metric", "job_duration"),
		zap.Float64("value", d.Seconds()),
		zap.String("job_type", t.job),
		zap.String("status", status))
	return d
}
