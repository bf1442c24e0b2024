package listener

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// LoggingListener はステップの開始と終了をログに出力する StepExecutionListener です。
type LoggingListener struct{}

var _ core.StepExecutionListener = (*LoggingListener)(nil)

// NewLoggingListener は新しい LoggingListener を作成します。
func NewLoggingListener() *LoggingListener {
	return &LoggingListener{}
}

func (l *LoggingListener) BeforeStep(ctx context.Context, se *core.StepExecution) {
	logger.Infof("ステップ '%s' (Execution ID: %s) を開始します。", se.StepName, se.ID)
}

func (l *LoggingListener) AfterStep(ctx context.Context, se *core.StepExecution) {
	if se.Status == core.BatchStatusFailed {
		logger.Errorf("ステップ '%s' が失敗しました。ExitStatus: %s, 読み込み: %d, 書き込み: %d, エラー数: %d",
			se.StepName, se.ExitStatus, se.ReadCount, se.WriteCount, len(se.Failures))
		return
	}
	logger.Infof("ステップ '%s' が終了しました。ExitStatus: %s, 読み込み: %d, 書き込み: %d, 所要時間: %s",
		se.StepName, se.ExitStatus, se.ReadCount, se.WriteCount, se.Duration())
}
