package exception_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
)

func TestBatchError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := exception.NewBatchError("raw_store_writer", "ドキュメントの挿入に失敗しました", cause)

	assert.Equal(t, "[raw_store_writer] ドキュメントの挿入に失敗しました: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, err.StackTrace)

	noCause := exception.NewBatchError("extract", "データがありません", nil)
	assert.Equal(t, "[extract] データがありません", noCause.Error())
	assert.Nil(t, noCause.Unwrap())
}

func TestNewBatchErrorf_TrailingErrorIsWrapped(t *testing.T) {
	err := exception.NewBatchErrorf("transform", "観測 %d にキー '%s' がありません", 2, "ts", context.DeadlineExceeded)

	assert.Equal(t, "観測 2 にキー 'ts' がありません", err.Message)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	plain := exception.NewBatchErrorf("transform", "観測 %d", 1)
	assert.Equal(t, "観測 1", plain.Message)
	assert.Nil(t, plain.OriginalErr)
}

func TestModuleOf(t *testing.T) {
	inner := exception.NewBatchError("extract", "API呼び出しエラー", nil)
	wrapped := exception.NewBatchError("extractStep", "Tasklet 実行エラー", inner)

	module, ok := exception.ModuleOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, "extractStep", module)

	_, ok = exception.ModuleOf(errors.New("plain"))
	assert.False(t, ok)
}
