package initializer

import (
	"context"

	"github.com/pkg/errors"

	config "github.com/tigerroll/weather_etl/pkg/batch/config"
	factory "github.com/tigerroll/weather_etl/pkg/batch/job/factory"
	joblauncher "github.com/tigerroll/weather_etl/pkg/batch/job/joblauncher"
	jsl "github.com/tigerroll/weather_etl/pkg/batch/job/jsl"
	"github.com/tigerroll/weather_etl/pkg/batch/metrics"
	repository "github.com/tigerroll/weather_etl/pkg/batch/repository"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

const module = "initializer"

// BatchInitializer はバッチアプリケーションの初期化処理を担当します。
// 設定のロードから JobRepository、JobFactory、JobLauncher の生成までを順に行います。
type BatchInitializer struct {
	Config             *config.Config
	JSLDefinitionBytes []byte
	// LogLevelOverride が空でない場合、設定ファイルと環境変数のログレベルより優先されます。
	LogLevelOverride string

	JobRepository   job.JobRepository
	JobFactory      *factory.JobFactory
	JobLauncher     joblauncher.JobLauncher
	MetricsRecorder *metrics.Recorder
	Definitions     *jsl.Registry
}

// NewBatchInitializer は新しい BatchInitializer のインスタンスを作成します。
// cfg.EmbeddedConfig には埋め込みの application.yaml を設定しておきます。
func NewBatchInitializer(cfg *config.Config) *BatchInitializer {
	return &BatchInitializer{
		Config: cfg,
	}
}

// Initialize はバッチアプリケーションの初期化処理を実行します。
// .env ファイルのロードは呼び出し元で行われている前提です。
func (bi *BatchInitializer) Initialize(ctx context.Context) (joblauncher.JobLauncher, *factory.JobFactory, error) {
	logger.Debugf("BatchInitializer.Initialize が呼び出されました。")

	// Step 1: 設定のロード
	cfg, err := config.NewBytesConfigLoader(bi.Config.EmbeddedConfig).Load()
	if err != nil {
		return nil, nil, exception.NewBatchError(module, "設定のロードに失敗しました", err)
	}
	if bi.LogLevelOverride != "" {
		cfg.System.Logging.Level = bi.LogLevelOverride
	}
	bi.Config = cfg

	logger.SetLogLevel(cfg.System.Logging.Level)
	logger.Debugf("ロギングレベルを '%s' に設定しました。", cfg.System.Logging.Level)

	// Step 2: Job Repository の生成 (SQL の場合はマイグレーションも実行)
	jobRepository, err := repository.NewJobRepository(ctx, cfg.JobRepository)
	if err != nil {
		return nil, nil, exception.NewBatchError(module, "Job Repository の生成に失敗しました", err)
	}
	bi.JobRepository = jobRepository
	logger.Infof("Job Repository を生成しました (Type: %s)。", cfg.JobRepository.Type)

	// Step 3: JSL 定義のロード
	bi.Definitions = jsl.NewRegistry()
	if _, err := bi.Definitions.LoadFromBytes(bi.JSLDefinitionBytes); err != nil {
		return nil, nil, exception.NewBatchError(module, "JSL 定義のロードに失敗しました", err)
	}
	logger.Debugf("JSL 定義のロードが完了しました。ロードされたジョブ数: %d", bi.Definitions.Count())

	// Step 4: メトリクス、JobFactory、JobLauncher の生成
	bi.MetricsRecorder = metrics.NewRecorder()
	bi.JobFactory = factory.NewJobFactory(cfg, jobRepository, bi.Definitions)
	bi.JobLauncher = joblauncher.NewSimpleJobLauncher(jobRepository, bi.JobFactory)
	logger.Debugf("JobFactory と SimpleJobLauncher を生成しました。")

	return bi.JobLauncher, bi.JobFactory, nil
}

// Close は BatchInitializer が保持するリソースを解放します。
func (bi *BatchInitializer) Close() error {
	if bi.JobRepository == nil {
		return nil
	}
	if err := bi.JobRepository.Close(); err != nil {
		logger.Errorf("Job Repository のクローズに失敗しました: %v", err)
		return errors.Wrap(err, "Job Repository クローズエラー")
	}
	logger.Debugf("Job Repository をクローズしました。")
	return nil
}
