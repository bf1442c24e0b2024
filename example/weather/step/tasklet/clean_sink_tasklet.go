package tasklet

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// CleanSinkTasklet は変換済みの CleanRecord を RecordWriter に書き込みます。
type CleanSinkTasklet struct {
	baseTasklet
	writer RecordWriter
}

var _ core.Tasklet = (*CleanSinkTasklet)(nil)

// NewCleanSinkTasklet は新しい CleanSinkTasklet のインスタンスを作成します。
func NewCleanSinkTasklet(writer RecordWriter) *CleanSinkTasklet {
	return &CleanSinkTasklet{baseTasklet: newBaseTasklet("CleanSinkTasklet"), writer: writer}
}

// Execute は Tasklet のビジネスロジックを実行します。
func (t *CleanSinkTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.ExitStatus, error) {
	logger.Infof("Tasklet '%s' を実行するよ。", t.name)

	records, err := t.cleanRecords()
	if err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.ReadCount = len(records)

	n, err := t.writer.Write(ctx, records)
	if err != nil {
		return core.ExitStatusFailed, err
	}
	stepExecution.WriteCount = n

	logger.Infof("Tasklet '%s' が正常に完了したよ。書き込み件数: %d", t.name, n)
	return core.ExitStatusCompleted, nil
}
