package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"

	weather_config "github.com/tigerroll/weather_etl/example/weather/config"
	weather_entity "github.com/tigerroll/weather_etl/example/weather/domain/entity"
)

// RawFileWriter は生のペイロードを4スペースでインデントした JSON としてファイルに書き込みます。
// キーの順序と非 ASCII 文字は API のレスポンスのまま保持されます。
type RawFileWriter struct {
	config *weather_config.RawFileWriterConfig
	fs     afero.Fs
}

// NewRawFileWriter は新しい RawFileWriter を作成します。
func NewRawFileWriter(cfg *weather_config.RawFileWriterConfig, fs afero.Fs) *RawFileWriter {
	return &RawFileWriter{config: cfg, fs: fs}
}

// Write はペイロードを設定されたパスに作成または上書きします。
// ペイロードが空の場合は警告を出力し、ファイルシステムに触れずにエラーを返します。
func (w *RawFileWriter) Write(ctx context.Context, payload *weather_entity.RawPayload) error {
	const module = "raw_file_writer"

	if payload.IsEmpty() {
		logger.Warnf("書き込むペイロードが空のため、生データファイルを作成しません。パス: %s", w.config.Path)
		return exception.NewBatchErrorf(module, "ペイロードが空です")
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, payload.Body, "", "    "); err != nil {
		return exception.NewBatchError(module, "ペイロードの整形に失敗しました", err)
	}

	if dir := filepath.Dir(w.config.Path); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			logger.Errorf("出力ディレクトリ '%s' の作成に失敗しました: %v", dir, err)
			return exception.NewBatchErrorf(module, "出力ディレクトリ '%s' の作成に失敗しました", dir, err)
		}
	}

	if err := afero.WriteFile(w.fs, w.config.Path, buf.Bytes(), os.FileMode(0o644)); err != nil {
		logger.Errorf("生データファイル '%s' の書き込みに失敗しました: %v", w.config.Path, err)
		return exception.NewBatchErrorf(module, "生データファイル '%s' の書き込みに失敗しました", w.config.Path, err)
	}

	logger.Infof("生データを '%s' に保存したよ。(%d バイト)", w.config.Path, buf.Len())
	return nil
}
