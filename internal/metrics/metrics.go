// Package metrics records run metrics in a Prometheus registry and exports
// them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "matrix_runner"
)

// Recorder observes the scheduler and keeps the metrics of one run.
type Recorder struct {
	registry *prometheus.Registry

	mu      sync.Mutex
	running map[string]bool

	started     prometheus.Counter
	inFlight    prometheus.Gauge
	finished    *prometheus.CounterVec
	retries     prometheus.Counter
	durations   *prometheus.HistogramVec
	runInfo     *prometheus.GaugeVec
	runDuration prometheus.Gauge
	exitCode    prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		running:  make(map[string]bool),
		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cases_started_total",
			Help:      "Number of cases that started executing",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "cases_in_flight",
			Help:      "Number of cases currently executing",
		}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cases_total",
			Help:      "Number of finished cases by final status",
		}, []string{"status"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "case_retries_total",
			Help:      "Number of failed run attempts that were retried",
		}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "case_duration_seconds",
			Help:      "Wall time of executed cases",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"status"}),
		runInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_info",
			Help:      "Constant 1, labelled with the run identity",
		}, []string{"run_id", "host", "shard"}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the whole run",
		}),
		exitCode: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_exit_code",
			Help:      "Exit code of the run",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// CaseStarted implements matrix.Observer.
func (r *Recorder) CaseStarted(c matrix.Case) {
	r.mu.Lock()
	r.running[c.Name] = true
	r.mu.Unlock()

	r.started.Inc()
	r.inFlight.Inc()
}

// CaseFinished implements matrix.Observer. Cases cancelled before they
// started are counted by status only.
func (r *Recorder) CaseFinished(o matrix.Outcome) {
	r.finished.WithLabelValues(o.Status.String()).Inc()

	r.mu.Lock()
	started := r.running[o.Case.Name]
	delete(r.running, o.Case.Name)
	r.mu.Unlock()
	if !started {
		return
	}

	r.inFlight.Dec()
	r.retries.Add(float64(o.Retries))
	r.durations.WithLabelValues(o.Status.String()).Observe(o.Duration.Seconds())
}

// RecordReport sets the run-level gauges and counts the outcomes that never
// went through the scheduler.
func (r *Recorder) RecordReport(rep *matrix.Report) {
	shard := strconv.Itoa(rep.Shards.Index) + "/" + strconv.Itoa(rep.Shards.Total)
	r.runInfo.WithLabelValues(rep.RunID, rep.Host.String(), shard).Set(1)
	r.runDuration.Set(rep.Duration().Round(time.Millisecond).Seconds())
	r.exitCode.Set(float64(rep.ExitCode()))
	for _, o := range rep.Outcomes {
		if o.SkipReason == matrix.SkipArch {
			r.finished.WithLabelValues(o.Status.String()).Inc()
		}
	}
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
