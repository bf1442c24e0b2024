package tasklet

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"

	weather_entity "github.com/tigerroll/weather_etl/example/weather/domain/entity"
)

// ステップ間で受け渡す値の ExecutionContext キーです。JSL の execution-context-promotion と一致させます。
const (
	RawPayloadKey   = "weather.rawPayload"
	CleanRecordsKey = "weather.cleanRecords"
)

// PayloadReader は天気APIからペイロードを取得します。
type PayloadReader interface {
	Read(ctx context.Context) (*weather_entity.RawPayload, error)
}

// PayloadProcessor はペイロードをクリーンレコードに変換します。
type PayloadProcessor interface {
	Process(ctx context.Context, payload *weather_entity.RawPayload) ([]weather_entity.CleanRecord, error)
}

// PayloadWriter はペイロードを1件として書き込みます。
type PayloadWriter interface {
	Write(ctx context.Context, payload *weather_entity.RawPayload) error
}

// RecordWriter はクリーンレコードを書き込み、書き込んだ件数を返します。
type RecordWriter interface {
	Write(ctx context.Context, records []weather_entity.CleanRecord) (int, error)
}

// baseTasklet は ETL の各 Tasklet に共通する ExecutionContext の受け渡しを実装します。
// jobEC は前のステップがプロモートした値の参照用、output はこのステップが出力する値です。
type baseTasklet struct {
	name   string
	jobEC  core.ExecutionContext
	output core.ExecutionContext
}

func newBaseTasklet(name string) baseTasklet {
	return baseTasklet{name: name, jobEC: core.NewExecutionContext(), output: core.NewExecutionContext()}
}

// Close はリソースを解放するためのメソッドです。
func (t *baseTasklet) Close(ctx context.Context) error {
	logger.Debugf("Tasklet '%s' をクローズするよ。", t.name)
	return nil
}

// SetExecutionContext は JobExecutionContext を受け取り、出力をリセットします。
func (t *baseTasklet) SetExecutionContext(ctx context.Context, ec core.ExecutionContext) error {
	if ec == nil {
		ec = core.NewExecutionContext()
	}
	t.jobEC = ec
	t.output = core.NewExecutionContext()
	return nil
}

// GetExecutionContext はこのステップが出力した値のみを返します。
func (t *baseTasklet) GetExecutionContext(ctx context.Context) (core.ExecutionContext, error) {
	return t.output, nil
}

// rawPayload は前のステップがプロモートした RawPayload を取得します。
func (t *baseTasklet) rawPayload() (*weather_entity.RawPayload, error) {
	v, ok := t.jobEC.GetNested(RawPayloadKey)
	if !ok {
		return nil, exception.NewBatchErrorf(t.name, "ExecutionContext にキー '%s' がありません", RawPayloadKey)
	}
	payload, ok := v.(*weather_entity.RawPayload)
	if !ok {
		return nil, exception.NewBatchErrorf(t.name, "ExecutionContext のキー '%s' の型が不正です: %T", RawPayloadKey, v)
	}
	return payload, nil
}

// cleanRecords は前のステップがプロモートした CleanRecord のリストを取得します。
func (t *baseTasklet) cleanRecords() ([]weather_entity.CleanRecord, error) {
	v, ok := t.jobEC.GetNested(CleanRecordsKey)
	if !ok {
		return nil, exception.NewBatchErrorf(t.name, "ExecutionContext にキー '%s' がありません", CleanRecordsKey)
	}
	records, ok := v.([]weather_entity.CleanRecord)
	if !ok {
		return nil, exception.NewBatchErrorf(t.name, "ExecutionContext のキー '%s' の型が不正です: %T", CleanRecordsKey, v)
	}
	return records, nil
}
