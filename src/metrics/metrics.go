package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the collector's counters on a private registry so a run
// can be exported as a node_exporter textfile. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	FilesPulled         prometheus.Counter
	BytesPulled         prometheus.Counter
	SnapshotsCollected  prometheus.Counter
	FilesCompressed     prometheus.Counter
	CompressionFailures prometheus.Counter
	StepDuration        *prometheus.GaugeVec
	StepFailures        *prometheus.CounterVec
	LastSuccess         prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		FilesPulled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artifact_collector_files_pulled_total",
			Help: "Files copied from the remote workspace into the log root.",
		}),
		BytesPulled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artifact_collector_bytes_pulled_total",
			Help: "Bytes copied from the remote workspace into the log root.",
		}),
		SnapshotsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artifact_collector_snapshots_collected_total",
			Help: "Database snapshots copied into the log root.",
		}),
		FilesCompressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artifact_collector_files_compressed_total",
			Help: "Files compressed in place.",
		}),
		CompressionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artifact_collector_compression_failures_total",
			Help: "Files that could not be compressed.",
		}),
		StepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "artifact_collector_step_duration_seconds",
			Help: "Wall time of the last run of each pipeline step.",
		}, []string{"step"}),
		StepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifact_collector_step_failures_total",
			Help: "Pipeline step failures.",
		}, []string{"step"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "artifact_collector_last_success_timestamp_seconds",
			Help: "Unix time of the last fully successful run.",
		}),
	}
	r.registry.MustRegister(
		r.FilesPulled,
		r.BytesPulled,
		r.SnapshotsCollected,
		r.FilesCompressed,
		r.CompressionFailures,
		r.StepDuration,
		r.StepFailures,
		r.LastSuccess,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) FilePulled(bytes int64) {
	if r == nil {
		return
	}
	r.FilesPulled.Inc()
	r.BytesPulled.Add(float64(bytes))
}

func (r *Recorder) SnapshotCollected() {
	if r == nil {
		return
	}
	r.SnapshotsCollected.Inc()
}

func (r *Recorder) Compressed(ok bool) {
	if r == nil {
		return
	}
	if ok {
		r.FilesCompressed.Inc()
	} else {
		r.CompressionFailures.Inc()
	}
}

func (r *Recorder) Step(name string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.StepDuration.WithLabelValues(name).Set(d.Seconds())
	if err != nil {
		r.StepFailures.WithLabelValues(name).Inc()
	}
}

func (r *Recorder) Succeeded(now time.Time) {
	if r == nil {
		return
	}
	r.LastSuccess.Set(float64(now.Unix()))
}

// WriteTextfile writes all metrics in the Prometheus text format. The file
// is written to a temporary name and renamed, as node_exporter expects.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
