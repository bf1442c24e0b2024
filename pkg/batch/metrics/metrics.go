package metrics

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
)

const (
	namespace = "weather_etl"
	subsystem = "batch"
)

// Recorder はジョブとステップの実行結果を Prometheus のメトリクスとして記録します。
// バッチは短命なプロセスのため、メトリクスは専用の Registry に登録し、終了時に Pushgateway へ送信します。
type Recorder struct {
	registry *prometheus.Registry

	// stepDuration はステップの実行時間の分布です。
	stepDuration *prometheus.HistogramVec
	// stepOutcome はステップの終了ステータスごとの回数です。
	stepOutcome *prometheus.CounterVec
	// recordsWritten はステップが書き込んだレコード数です。
	recordsWritten *prometheus.CounterVec
	// jobStatus は最後に終了したジョブの状態です (該当するステータスのみ 1)。
	jobStatus *prometheus.GaugeVec
	// jobLastEnd は最後にジョブが終了した時刻 (Unix 秒) です。
	jobLastEnd *prometheus.GaugeVec
}

// NewRecorder は新しい Recorder を作成し、全てのメトリクスを登録します。
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "step_duration_seconds",
				Help:      "Step execution time distribution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job_name", "step"},
		),
		stepOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "step_executions_total",
				Help:      "Count of step executions by exit status",
			},
			[]string{"job_name", "step", "status"},
		),
		recordsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "records_written_total",
				Help:      "Count of records written by each step",
			},
			[]string{"job_name", "step"},
		),
		jobStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_status",
				Help:      "Status of the last finished job execution",
			},
			[]string{"job_name", "status"},
		),
		jobLastEnd: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_last_end_timestamp_seconds",
				Help:      "Unix time the last job execution finished",
			},
			[]string{"job_name"},
		),
	}

	r.registry.MustRegister(r.stepDuration, r.stepOutcome, r.recordsWritten, r.jobStatus, r.jobLastEnd)
	return r
}

// Registry はメトリクスが登録されている Registry を返します。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStep はステップ実行の結果を記録します。
func (r *Recorder) ObserveStep(jobName string, se *core.StepExecution) {
	r.stepDuration.WithLabelValues(jobName, se.StepName).Observe(se.Duration().Seconds())
	r.stepOutcome.WithLabelValues(jobName, se.StepName, string(se.ExitStatus)).Inc()
	if se.WriteCount > 0 {
		r.recordsWritten.WithLabelValues(jobName, se.StepName).Add(float64(se.WriteCount))
	}
}

// ObserveJob はジョブ実行の最終状態を記録します。
func (r *Recorder) ObserveJob(je *core.JobExecution) {
	for _, s := range []core.JobStatus{core.BatchStatusCompleted, core.BatchStatusFailed, core.BatchStatusStopped} {
		v := 0.0
		if je.Status == s {
			v = 1
		}
		r.jobStatus.WithLabelValues(je.JobName, string(s)).Set(v)
	}
	if !je.EndTime.IsZero() {
		r.jobLastEnd.WithLabelValues(je.JobName).Set(float64(je.EndTime.Unix()))
	}
}

// Push は記録したメトリクスを Pushgateway に送信します。
func (r *Recorder) Push(ctx context.Context, url, jobName string) error {
	if err := push.New(url, jobName).Gatherer(r.registry).PushContext(ctx); err != nil {
		return errors.Wrapf(err, "push metrics to %s", url)
	}
	return nil
}
