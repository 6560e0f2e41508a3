// Package metrics collects Prometheus metrics for segmentation jobs.
// A CLI run has no scrape endpoint, so the registry is written out as a
// node-exporter textfile at the end of the run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for segmentation jobs.
type Metrics struct {
	registry *prometheus.Registry

	// Job metrics
	JobsTotal   *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	ActiveJobs  prometheus.Gauge

	// Output metrics
	OutputFiles     *prometheus.CounterVec
	OutputDuration  *prometheus.HistogramVec
	AudioProcessed  *prometheus.CounterVec
	FilesPublished  prometheus.Counter
	PublishFailures prometheus.Counter
}

// NewMetrics creates all metrics on a registry of their own.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavsegment_jobs_total",
			Help: "Total number of segmentation jobs by mode and final status",
		}, []string{"mode", "status"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wavsegment_job_duration_seconds",
			Help:    "Wall-clock time spent per job",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}, []string{"mode"}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wavsegment_active_jobs",
			Help: "Current number of running jobs",
		}),

		OutputFiles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavsegment_output_files_total",
			Help: "Total number of planned output files by mode",
		}, []string{"mode"}),
		OutputDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wavsegment_output_duration_seconds",
			Help:    "Duration of planned output files",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		}, []string{"mode"}),
		AudioProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavsegment_audio_processed_seconds_total",
			Help: "Total seconds of input audio processed by mode",
		}, []string{"mode"}),
		FilesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavsegment_files_published_total",
			Help: "Total number of output files uploaded to object storage",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavsegment_publish_failures_total",
			Help: "Total number of failed uploads",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveJob records the outcome of one job.
func (m *Metrics) ObserveJob(mode, status string, elapsed time.Duration) {
	m.JobsTotal.WithLabelValues(mode, status).Inc()
	m.JobDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveOutputs records the planned outputs of a successful job and the
// amount of input audio it covered.
func (m *Metrics) ObserveOutputs(mode string, inputSeconds float64, durations []float64) {
	m.AudioProcessed.WithLabelValues(mode).Add(inputSeconds)
	m.OutputFiles.WithLabelValues(mode).Add(float64(len(durations)))
	h := m.OutputDuration.WithLabelValues(mode)
	for _, d := range durations {
		h.Observe(d)
	}
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
