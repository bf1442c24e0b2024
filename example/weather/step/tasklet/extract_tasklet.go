package tasklet

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// ExtractTasklet は天気APIからペイロードを取得し、ExecutionContext に出力します。
type ExtractTasklet struct {
	baseTasklet
	reader PayloadReader
}

var _ core.Tasklet = (*ExtractTasklet)(nil)

// NewExtractTasklet は新しい ExtractTasklet のインスタンスを作成します。
func NewExtractTasklet(reader PayloadReader) *ExtractTasklet {
	return &ExtractTasklet{baseTasklet: newBaseTasklet("ExtractTasklet"), reader: reader}
}

// Execute は Tasklet のビジネスロジックを実行します。
func (t *ExtractTasklet) Execute(ctx context.Context, stepExecution *core.StepExecution) (core.ExitStatus, error) {
	logger.Infof("Tasklet '%s' を実行するよ。", t.name)

	payload, err := t.reader.Read(ctx)
	if err != nil {
		return core.ExitStatusFailed, err
	}

	stepExecution.ReadCount = 1
	t.output.PutNested(RawPayloadKey, payload)

	logger.Infof("Tasklet '%s' が正常に完了したよ。", t.name)
	return core.ExitStatusCompleted, nil
}
