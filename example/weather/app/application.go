package app

import (
	"context"
	"errors"
	"net/http"

	godotenv "github.com/joho/godotenv"
	"github.com/spf13/afero"

	config "github.com/tigerroll/weather_etl/pkg/batch/config"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	factory "github.com/tigerroll/weather_etl/pkg/batch/job/factory"
	incrementer "github.com/tigerroll/weather_etl/pkg/batch/job/incrementer"
	joblauncher "github.com/tigerroll/weather_etl/pkg/batch/job/joblauncher"
	joblistener "github.com/tigerroll/weather_etl/pkg/batch/job/listener"
	initializer "github.com/tigerroll/weather_etl/pkg/batch/initializer"
	"github.com/tigerroll/weather_etl/pkg/batch/metrics"
	job "github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	steplistener "github.com/tigerroll/weather_etl/pkg/batch/step/listener"
	"github.com/tigerroll/weather_etl/pkg/batch/util/clock"
	exception "github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	logger "github.com/tigerroll/weather_etl/pkg/batch/util/logger"

	weather_config "github.com/tigerroll/weather_etl/example/weather/config"
	appJob "github.com/tigerroll/weather_etl/example/weather/job"
	weather_repository "github.com/tigerroll/weather_etl/example/weather/repository"
	weatherprocessor "github.com/tigerroll/weather_etl/example/weather/step/processor"
	weatherreader "github.com/tigerroll/weather_etl/example/weather/step/reader"
	appTasklet "github.com/tigerroll/weather_etl/example/weather/step/tasklet"
	weatherwriter "github.com/tigerroll/weather_etl/example/weather/step/writer"
)

// Dependencies は外部リソースへのアクセス手段です。未設定のフィールドは本番用の実装で補われます。
type Dependencies struct {
	Fs         afero.Fs
	HTTPClient *http.Client
	Connect    weather_repository.Connector
	Clock      clock.Clock
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Fs == nil {
		d.Fs = afero.NewOsFs()
	}
	if d.Connect == nil {
		d.Connect = weather_repository.ConnectMongo
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	return d
}

// Options は RunApplication の入力です。
type Options struct {
	EnvFilePath string
	// LogLevel が空でない場合、設定ファイルと環境変数のログレベルより優先されます。
	LogLevel       string
	EmbeddedConfig []byte
	EmbeddedJSL    []byte
	Dependencies   Dependencies
}

// registerApplicationComponents はアプリケーション固有のコンポーネントとジョブを JobFactory に登録します。
func registerApplicationComponents(jobFactory *factory.JobFactory, recorder *metrics.Recorder, deps Dependencies) {
	// Tasklet の登録
	jobFactory.RegisterTaskletBuilder("weatherExtractTasklet", func(cfg *config.Config, properties map[string]string) (core.Tasklet, error) {
		reader := weatherreader.NewWeatherReader(weather_config.NewWeatherReaderConfig(cfg, properties), deps.HTTPClient)
		return appTasklet.NewExtractTasklet(reader), nil
	})
	jobFactory.RegisterTaskletBuilder("rawFileWriterTasklet", func(cfg *config.Config, properties map[string]string) (core.Tasklet, error) {
		writer := weatherwriter.NewRawFileWriter(weather_config.NewRawFileWriterConfig(cfg), deps.Fs)
		return appTasklet.NewRawSinkTasklet("RawFileWriterTasklet", writer), nil
	})
	jobFactory.RegisterTaskletBuilder("rawStoreWriterTasklet", func(cfg *config.Config, properties map[string]string) (core.Tasklet, error) {
		writer := weatherwriter.NewRawDocumentWriter(weather_config.NewRawDocumentWriterConfig(cfg), deps.Connect, deps.Clock)
		return appTasklet.NewRawSinkTasklet("RawStoreWriterTasklet", writer), nil
	})
	jobFactory.RegisterTaskletBuilder("weatherTransformTasklet", func(cfg *config.Config, properties map[string]string) (core.Tasklet, error) {
		return appTasklet.NewTransformTasklet(weatherprocessor.NewWeatherProcessor()), nil
	})
	jobFactory.RegisterTaskletBuilder("cleanStoreWriterTasklet", func(cfg *config.Config, properties map[string]string) (core.Tasklet, error) {
		writer := weatherwriter.NewCleanDocumentWriter(weather_config.NewCleanDocumentWriterConfig(cfg), deps.Connect, deps.Clock)
		return appTasklet.NewCleanSinkTasklet(writer), nil
	})

	// Step-level listeners の登録
	jobFactory.RegisterStepExecutionListenerBuilder("loggingStepListener", func(cfg *config.Config) (core.StepExecutionListener, error) {
		return steplistener.NewLoggingListener(), nil
	})
	jobFactory.RegisterStepExecutionListenerBuilder("metricsStepListener", func(cfg *config.Config) (core.StepExecutionListener, error) {
		return steplistener.NewMetricsListener(recorder), nil
	})

	// JobExecutionListener の登録
	jobFactory.RegisterJobListenerBuilder("loggingJobListener", func(cfg *config.Config) (core.JobExecutionListener, error) {
		return joblistener.NewLoggingJobListener(), nil
	})
	jobFactory.RegisterJobListenerBuilder("metricsPushJobListener", func(cfg *config.Config) (core.JobExecutionListener, error) {
		return joblistener.NewMetricsPushListener(recorder, cfg.Metrics.PushgatewayURL, cfg.Batch.JobName), nil
	})

	// JobParametersIncrementer の登録
	jobFactory.RegisterJobParametersIncrementerBuilder("timestampIncrementer", func(cfg *config.Config, properties map[string]string) (core.JobParametersIncrementer, error) {
		name := "run.timestamp"
		if propName, ok := properties["name"]; ok && propName != "" {
			name = propName
		}
		return incrementer.NewTimestampIncrementer(name, deps.Clock), nil
	})

	logger.Debugf("全てのアプリケーションコンポーネントビルダーを登録しました。")

	// Weather Job のビルダー登録
	jobFactory.RegisterJobBuilder(appJob.JobName, func(
		jobRepository job.JobRepository,
		cfg *config.Config,
		listeners []core.JobExecutionListener,
		flow *core.FlowDefinition,
	) (core.Job, error) {
		return appJob.NewWeatherJob(jobRepository, listeners, flow), nil
	})

	logger.Debugf("全てのアプリケーションジョブビルダーを登録しました。")
}

// setupApplication はアプリケーションの初期化処理を実行し、必要なコンポーネントを返します。
func setupApplication(ctx context.Context, opts Options) (*initializer.BatchInitializer, joblauncher.JobLauncher, error) {
	// .env ファイルのロード
	if opts.EnvFilePath != "" {
		if err := godotenv.Load(opts.EnvFilePath); err != nil {
			logger.Warnf(".env ファイル '%s' のロードに失敗しました (本番環境では環境変数を使用): %v", opts.EnvFilePath, err)
		} else {
			logger.Infof(".env ファイル '%s' をロードしました。", opts.EnvFilePath)
		}
	} else {
		logger.Debugf(".env ファイルのパスが指定されていないため、ロードをスキップします。")
	}

	batchInitializer := initializer.NewBatchInitializer(&config.Config{EmbeddedConfig: opts.EmbeddedConfig})
	batchInitializer.JSLDefinitionBytes = opts.EmbeddedJSL
	batchInitializer.LogLevelOverride = opts.LogLevel

	jobLauncher, jobFactory, initErr := batchInitializer.Initialize(ctx)
	if initErr != nil {
		// Initialize の途中で生成されたリソースを解放する
		_ = batchInitializer.Close()
		return nil, nil, exception.NewBatchError("app", "バッチアプリケーションの初期化に失敗しました", initErr)
	}
	logger.Infof("バッチアプリケーションの初期化が完了しました。")

	registerApplicationComponents(jobFactory, batchInitializer.MetricsRecorder, opts.Dependencies.withDefaults())

	return batchInitializer, jobLauncher, nil
}

// executeJob は指定されたジョブを実行し、その結果に基づいて終了コードを返します。
func executeJob(ctx context.Context, jobLauncher joblauncher.JobLauncher, appConfig *config.Config) int {
	jobName := appConfig.Batch.JobName
	logger.Infof("実行する Job: '%s'", jobName)

	jobExecution, launchErr := jobLauncher.Launch(ctx, jobName, core.NewJobParameters())
	if launchErr != nil {
		return handleApplicationError(launchErr, jobExecution, jobName)
	}

	if jobExecution == nil {
		logger.Errorf("JobLauncher.Launch がエラーなしで nil の JobExecution を返しました。")
		return 1
	}

	return handleApplicationError(nil, jobExecution, jobName)
}

// RunApplication はアプリケーションのメインロジックを実行し、プロセスの終了コードを返します。
// ジョブが COMPLETED で終了した場合のみ 0 を返します。
func RunApplication(ctx context.Context, opts Options) int {
	batchInitializer, jobLauncher, initErr := setupApplication(ctx, opts)
	if initErr != nil {
		logger.Errorf("%v", initErr)
		return 1
	}

	defer func() {
		if closeErr := batchInitializer.Close(); closeErr != nil {
			logger.Errorf("バッチアプリケーションのリソースクローズ中にエラーが発生しました: %v", closeErr)
		} else {
			logger.Infof("バッチアプリケーションのリソースを正常にクローズしました。")
		}
	}()

	return executeJob(ctx, jobLauncher, batchInitializer.Config)
}

// handleApplicationError はアプリケーションのエラーを処理し、適切な終了コードを返します。
func handleApplicationError(err error, jobExecution *core.JobExecution, jobName string) int {
	hasError := false

	if err != nil {
		hasError = true
		if jobExecution != nil {
			logger.Errorf("Job '%s' (Execution ID: %s) の実行中にエラーが発生しました: %v",
				jobName, jobExecution.ID, err)
			logger.Errorf("Job '%s' (Execution ID: %s) の最終状態: %s, ExitStatus: %s",
				jobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
		} else {
			logger.Errorf("Job '%s' の起動処理中にエラーが発生しました: %v", jobName, err)
		}

		var be *exception.BatchError
		if errors.As(err, &be) {
			logger.Errorf("BatchError 詳細: Module=%s, Message=%s, OriginalErr=%v", be.Module, be.Message, be.OriginalErr)
		}
	}

	// err が nil でも COMPLETED 以外で終了していれば失敗として扱う
	if jobExecution != nil && jobExecution.Status != core.BatchStatusCompleted {
		hasError = true
		logger.Errorf(
			"Job '%s' は %s で終了しました。詳細は JobExecution (ID: %s) およびログを確認してください。",
			jobExecution.JobName,
			jobExecution.Status,
			jobExecution.ID,
		)
	}

	if jobExecution != nil && len(jobExecution.Failures) > 0 {
		for i, f := range jobExecution.Failures {
			logger.Errorf("  - 失敗 %d: %v", i+1, f)
		}
	}

	if hasError {
		return 1
	}
	logger.Infof("Job '%s' が正常に完了しました。", jobName)
	return 0
}
