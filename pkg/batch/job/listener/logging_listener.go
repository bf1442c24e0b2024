package listener

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// LoggingJobListener はジョブの開始と終了をログに出力する JobExecutionListener です。
// 失敗したジョブでは記録された全てのエラーを出力します。
type LoggingJobListener struct{}

var _ core.JobExecutionListener = (*LoggingJobListener)(nil)

// NewLoggingJobListener は新しい LoggingJobListener を作成します。
func NewLoggingJobListener() *LoggingJobListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, je *core.JobExecution) {
	logger.Infof("Job '%s' (Execution ID: %s) の実行を開始します。", je.JobName, je.ID)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, je *core.JobExecution) {
	if je.Status == core.BatchStatusCompleted {
		logger.Infof("Job '%s' の実行が正常に完了しました。ステップ数: %d", je.JobName, len(je.StepExecutions))
		return
	}
	logger.Errorf("Job '%s' が %s で終了しました。エラー数: %d", je.JobName, je.Status, len(je.Failures))
	for i, f := range je.Failures {
		logger.Errorf("  エラー[%d]: %v", i, f)
	}
}
