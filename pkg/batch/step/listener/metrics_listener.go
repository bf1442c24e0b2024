package listener

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/metrics"
)

// MetricsListener はステップの実行結果を metrics.Recorder に記録する StepExecutionListener です。
type MetricsListener struct {
	recorder *metrics.Recorder
}

var _ core.StepExecutionListener = (*MetricsListener)(nil)

// NewMetricsListener は新しい MetricsListener を作成します。
func NewMetricsListener(recorder *metrics.Recorder) *MetricsListener {
	return &MetricsListener{recorder: recorder}
}

func (l *MetricsListener) BeforeStep(ctx context.Context, se *core.StepExecution) {}

func (l *MetricsListener) AfterStep(ctx context.Context, se *core.StepExecution) {
	jobName := ""
	if se.JobExecution != nil {
		jobName = se.JobExecution.JobName
	}
	l.recorder.ObserveStep(jobName, se)
}
