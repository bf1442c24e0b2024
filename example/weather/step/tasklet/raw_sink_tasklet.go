package tasklet

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// RawSinkTasklet は前のステップが取得したペイロードを PayloadWriter に書き込みます。
// 生データのファイル保存とドキュメントストア保存の両方で使用します。
type RawSinkTasklet struct {
	baseTasklet
	writer PayloadWriter
}

var _ core.Tasklet = (*RawSinkTasklet)(nil)

// NewRawSinkTasklet は新しい RawSinkTasklet のインスタンスを作成します。
func NewRawSinkTasklet(name string, writer PayloadWriter) *RawSinkTasklet {
	return &RawSinkTasklet{baseTasklet: newBaseTasklet(name), writer: writer}
}

// Execute は Tasklet のビジネスロジックを実行します。
func (t *RawSinkTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.ExitStatus, error) {
	logger.Infof("Tasklet '%s' を実行するよ。", t.name)

	payload, err := t.rawPayload()
	if err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.ReadCount = 1

	if err := t.writer.Write(ctx, payload); err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.WriteCount = 1

	logger.Infof("Tasklet '%s' が正常に完了したよ。", t.name)
	return core.ExitStatusCompleted, nil
}
