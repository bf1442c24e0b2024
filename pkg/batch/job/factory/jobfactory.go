package factory

import (
	config "github.com/tigerroll/weather_etl/pkg/batch/config"
	component "github.com/tigerroll/weather_etl/pkg/batch/job/component"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	jsl "github.com/tigerroll/weather_etl/pkg/batch/job/jsl"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// JobBuilder は特定の Job を生成するための関数型です。
type JobBuilder func(
	jobRepository job.JobRepository,
	cfg *config.Config,
	listeners []core.JobExecutionListener,
	flow *core.FlowDefinition,
) (core.Job, error)

// JobFactory は JSL 定義と登録済みのビルダーから Job オブジェクトを生成するためのファクトリです。
type JobFactory struct {
	config                           *config.Config
	jobRepository                    job.JobRepository
	definitions                      *jsl.Registry
	taskletBuilders                  map[string]component.TaskletBuilder
	jobBuilders                      map[string]JobBuilder
	jobListenerBuilders              map[string]component.JobListenerBuilder
	stepListenerBuilders             map[string]component.StepListenerBuilder
	jobParametersIncrementerBuilders map[string]component.JobParametersIncrementerBuilder
}

// NewJobFactory は新しい JobFactory のインスタンスを作成します。
func NewJobFactory(cfg *config.Config, repo job.JobRepository, definitions *jsl.Registry) *JobFactory {
	return &JobFactory{
		config:                           cfg,
		jobRepository:                    repo,
		definitions:                      definitions,
		taskletBuilders:                  make(map[string]component.TaskletBuilder),
		jobBuilders:                      make(map[string]JobBuilder),
		jobListenerBuilders:              make(map[string]component.JobListenerBuilder),
		stepListenerBuilders:             make(map[string]component.StepListenerBuilder),
		jobParametersIncrementerBuilders: make(map[string]component.JobParametersIncrementerBuilder),
	}
}

// RegisterTaskletBuilder は指定された名前で Tasklet のビルド関数を登録します。
func (f *JobFactory) RegisterTaskletBuilder(name string, builder component.TaskletBuilder) {
	f.taskletBuilders[name] = builder
	logger.Debugf("JobFactory: タスクレットビルダー '%s' を登録しました。", name)
}

// RegisterJobBuilder は指定された名前でジョブのビルド関数を登録します。
func (f *JobFactory) RegisterJobBuilder(name string, builder JobBuilder) {
	f.jobBuilders[name] = builder
	logger.Debugf("JobFactory: ジョブビルダー '%s' を登録しました。", name)
}

// RegisterJobListenerBuilder は指定された名前で JobExecutionListener のビルド関数を登録します。
func (f *JobFactory) RegisterJobListenerBuilder(name string, builder component.JobListenerBuilder) {
	f.jobListenerBuilders[name] = builder
	logger.Debugf("JobFactory: JobExecutionListener ビルダー '%s' を登録しました。", name)
}

// RegisterStepExecutionListenerBuilder は指定された名前で StepExecutionListener のビルド関数を登録します。
func (f *JobFactory) RegisterStepExecutionListenerBuilder(name string, builder component.StepListenerBuilder) {
	f.stepListenerBuilders[name] = builder
	logger.Debugf("JobFactory: StepExecutionListener ビルダー '%s' を登録しました。", name)
}

// RegisterJobParametersIncrementerBuilder は指定された名前で JobParametersIncrementer のビルド関数を登録します。
func (f *JobFactory) RegisterJobParametersIncrementerBuilder(name string, builder component.JobParametersIncrementerBuilder) {
	f.jobParametersIncrementerBuilders[name] = builder
	logger.Debugf("JobFactory: JobParametersIncrementer ビルダー '%s' を登録しました。", name)
}

// CreateJob は指定されたジョブ名の core.Job オブジェクトを JSL 定義から作成します。
func (f *JobFactory) CreateJob(jobName string) (core.Job, error) {
	module := "job_factory"
	logger.Debugf("JobFactory で Job '%s' の作成を試みます。", jobName)

	jslJob, ok := f.definitions.Get(jobName)
	if !ok {
		return nil, exception.NewBatchErrorf(module, "指定された Job '%s' のJSL定義が見つかりません", jobName)
	}

	jobBuilder, found := f.jobBuilders[jobName]
	if !found {
		return nil, exception.NewBatchErrorf(module, "指定された Job '%s' のビルダーが登録されていません", jobName)
	}

	coreFlow, err := jsl.ConvertJSLToCoreFlow(jslJob.Flow, f.taskletBuilders, f.stepListenerBuilders, f.jobRepository, f.config)
	if err != nil {
		return nil, exception.NewBatchErrorf(module, "JSL ジョブ '%s' のフロー変換に失敗しました", jobName, err)
	}

	var jobListeners []core.JobExecutionListener
	for _, ref := range jslJob.Listeners {
		builder, found := f.jobListenerBuilders[ref.Ref]
		if !found {
			return nil, exception.NewBatchErrorf(module, "JobExecutionListener '%s' のビルダーが登録されていません", ref.Ref)
		}
		l, err := builder(f.config)
		if err != nil {
			return nil, exception.NewBatchErrorf(module, "JobExecutionListener '%s' のビルドに失敗しました", ref.Ref, err)
		}
		jobListeners = append(jobListeners, l)
		logger.Debugf("JobExecutionListener '%s' を生成しました。", ref.Ref)
	}

	batchJob, err := jobBuilder(f.jobRepository, f.config, jobListeners, coreFlow)
	if err != nil {
		return nil, exception.NewBatchErrorf(module, "ジョブ '%s' のインスタンス化に失敗しました", jobName, err)
	}
	logger.Debugf("Job '%s' を JSL 定義から作成しました。", jobName)
	return batchJob, nil
}

// GetJobParametersIncrementer は指定されたジョブの JobParametersIncrementer を構築して返します。
// JSL に incrementer が指定されていない場合は nil を返します。
func (f *JobFactory) GetJobParametersIncrementer(jobName string) core.JobParametersIncrementer {
	jslJob, ok := f.definitions.Get(jobName)
	if !ok || jslJob.Incrementer.Ref == "" {
		return nil
	}

	builder, found := f.jobParametersIncrementerBuilders[jslJob.Incrementer.Ref]
	if !found {
		logger.Warnf("JobFactory: JobParametersIncrementer '%s' のビルダーが登録されていません。", jslJob.Incrementer.Ref)
		return nil
	}

	inc, err := builder(f.config, jslJob.Incrementer.Properties)
	if err != nil {
		logger.Errorf("JobFactory: JobParametersIncrementer '%s' のビルドに失敗しました: %v", jslJob.Incrementer.Ref, err)
		return nil
	}
	return inc
}
