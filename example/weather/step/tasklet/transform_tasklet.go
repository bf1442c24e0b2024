package tasklet

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// TransformTasklet はペイロードを CleanRecord のリストに変換し、ExecutionContext に出力します。
type TransformTasklet struct {
	baseTasklet
	processor PayloadProcessor
}

var _ core.Tasklet = (*TransformTasklet)(nil)

// NewTransformTasklet は新しい TransformTasklet のインスタンスを作成します。
func NewTransformTasklet(processor PayloadProcessor) *TransformTasklet {
	return &TransformTasklet{baseTasklet: newBaseTasklet("TransformTasklet"), processor: processor}
}

// Execute は Tasklet のビジネスロジックを実行します。
func (t *TransformTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.ExitStatus, error) {
	logger.Infof("Tasklet '%s' を実行するよ。", t.name)

	payload, err := t.rawPayload()
	if err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.ReadCount = 1

	records, err := t.processor.Process(ctx, payload)
	if err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.WriteCount = len(records)
	t.output.PutNested(CleanRecordsKey, records)

	logger.Infof("Tasklet '%s' が正常に完了したよ。変換件数: %d", t.name, len(records))
	return core.ExitStatusCompleted, nil
}
