package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// BatchError はバッチ処理中に発生するカスタムエラー型です。
// エラーの発生元モジュール (ステージ名など)、メッセージ、ラップされた元のエラーを保持します。
// ステージ間で受け渡されるエラーはすべてこの型に正規化されます。
type BatchError struct {
	Module      string // エラーが発生したモジュール (例: "extract", "transform", "raw_file_writer")
	Message     string // エラーの簡潔な説明
	OriginalErr error  // ラップされた元のエラー
	StackTrace  string // スタックトレース (デバッグ用)
}

// NewBatchError は新しい BatchError のインスタンスを作成します。
func NewBatchError(module, message string, originalErr error) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf はフォーマット文字列を使用して新しい BatchError を作成します。
// 最後の引数が error の場合、それはメッセージには含めず OriginalErr として扱います。
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	if n := len(a); n > 0 {
		if err, ok := a[n-1].(error); ok {
			originalErr = err
			a = a[:n-1]
		}
	}
	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, a...),
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error は error インターフェースの実装です。
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap は errors.Unwrap のために元のエラーを返します。
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// ModuleOf はエラーチェーンの中で最初に見つかった BatchError のモジュール名を返します。
// BatchError を含まない場合は空文字列と false を返します。
func ModuleOf(err error) (string, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Module, true
	}
	return "", false
}
