package writer

import (
	"context"

	"github.com/tigerroll/weather_etl/pkg/batch/util/clock"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"

	weather_config "github.com/tigerroll/weather_etl/example/weather/config"
	weather_entity "github.com/tigerroll/weather_etl/example/weather/domain/entity"
	weather_repository "github.com/tigerroll/weather_etl/example/weather/repository"
)

// documentWriter はドキュメントストアへの書き込みごとに接続を開き、書き込み後に切断します。
type documentWriter struct {
	module  string
	config  *weather_config.DocumentWriterConfig
	connect weather_repository.Connector
	clock   clock.Clock
}

// withStore は接続済みの DocumentStore で fn を実行し、必ず切断します。
func (w *documentWriter) withStore(ctx context.Context, fn func(store weather_repository.DocumentStore) error) error {
	store, err := w.connect(ctx, w.config.Store)
	if err != nil {
		logger.Errorf("ドキュメントストアへの接続に失敗しました (database: %s): %v", w.config.Store.Database, err)
		return exception.NewBatchError(w.module, "ドキュメントストアへの接続に失敗しました", err)
	}
	defer func() {
		if cerr := store.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warnf("ドキュメントストアの切断に失敗しました: %v", cerr)
		}
	}()
	return fn(store)
}

// RawDocumentWriter は生のペイロードに _ingested_at_ を付与して raw コレクションに1件挿入します。
type RawDocumentWriter struct {
	documentWriter
}

// NewRawDocumentWriter は新しい RawDocumentWriter を作成します。
func NewRawDocumentWriter(cfg *weather_config.DocumentWriterConfig, connect weather_repository.Connector, clk clock.Clock) *RawDocumentWriter {
	return &RawDocumentWriter{documentWriter{module: "raw_store_writer", config: cfg, connect: connect, clock: clk}}
}

// Write はペイロードを1件のドキュメントとして挿入します。
func (w *RawDocumentWriter) Write(ctx context.Context, payload *weather_entity.RawPayload) error {
	if payload.IsEmpty() {
		logger.Warnf("書き込むペイロードが空のため、コレクション '%s' への挿入を行いません。", w.config.Collection)
		return exception.NewBatchErrorf(w.module, "ペイロードが空です")
	}

	return w.withStore(ctx, func(store weather_repository.DocumentStore) error {
		doc := payload.WithIngestedAt(w.clock.Now().UTC())
		if err := store.InsertOne(ctx, w.config.Collection, doc); err != nil {
			logger.Errorf("コレクション '%s' への生データの挿入に失敗しました: %v", w.config.Collection, err)
			return exception.NewBatchErrorf(w.module, "コレクション '%s' への挿入に失敗しました", w.config.Collection, err)
		}
		logger.Infof("生データをコレクション '%s' に保存したよ。", w.config.Collection)
		return nil
	})
}

// CleanDocumentWriter は CleanRecord をそれぞれの _ingested_at_ 付きで clean コレクションに一括挿入します。
type CleanDocumentWriter struct {
	documentWriter
}

// NewCleanDocumentWriter は新しい CleanDocumentWriter を作成します。
func NewCleanDocumentWriter(cfg *weather_config.DocumentWriterConfig, connect weather_repository.Connector, clk clock.Clock) *CleanDocumentWriter {
	return &CleanDocumentWriter{documentWriter{module: "clean_store_writer", config: cfg, connect: connect, clock: clk}}
}

// Write は records を1回の InsertMany で挿入し、挿入件数を返します。
// records が空の場合は接続せずにエラーを返します。一部のみ挿入された場合の検出は行いません。
func (w *CleanDocumentWriter) Write(ctx context.Context, records []weather_entity.CleanRecord) (int, error) {
	if len(records) == 0 {
		logger.Errorf("挿入するクリーンデータがありません。コレクション: %s", w.config.Collection)
		return 0, exception.NewBatchErrorf(w.module, "挿入するクリーンデータがありません")
	}

	inserted := 0
	err := w.withStore(ctx, func(store weather_repository.DocumentStore) error {
		docs := make([]interface{}, 0, len(records))
		for _, rec := range records {
			rec.IngestedAt = w.clock.Now().UTC()
			docs = append(docs, rec.ToDocument())
		}

		n, err := store.InsertMany(ctx, w.config.Collection, docs)
		if err != nil {
			logger.Errorf("コレクション '%s' へのクリーンデータの挿入に失敗しました: %v", w.config.Collection, err)
			return exception.NewBatchErrorf(w.module, "コレクション '%s' への挿入に失敗しました", w.config.Collection, err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Infof("クリーンデータ %d 件をコレクション '%s' に保存したよ。", inserted, w.config.Collection)
	return inserted, nil
}
