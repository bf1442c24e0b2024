package job

import (
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/job/runner"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
)

// JobName は天気ETLジョブの JSL 上のIDです。
const JobName = "weatherJob"

// ETL の各ステップの JSL 上のIDです。
const (
	ExtractStep        = "extractStep"
	SaveRawFileStep    = "saveRawFileStep"
	SaveRawStoreStep   = "saveRawStoreStep"
	TransformStep      = "transformStep"
	SaveCleanStoreStep = "saveCleanStoreStep"
)

// RequiredSteps は天気ETLジョブのフローが定義しなければならないステップです。
var RequiredSteps = []string{ExtractStep, SaveRawFileStep, SaveRawStoreStep, TransformStep, SaveCleanStoreStep}

// WeatherJob は天気データを取得・保存・変換する FlowJob です。
// 実行は FlowJob に委譲し、起動前にフローが ETL の全ステップを持つことを確認します。
type WeatherJob struct {
	*runner.FlowJob
}

var _ core.Job = (*WeatherJob)(nil)

// NewWeatherJob は新しい WeatherJob のインスタンスを作成します。
func NewWeatherJob(jobRepository job.JobRepository, listeners []core.JobExecutionListener, flow *core.FlowDefinition) *WeatherJob {
	return &WeatherJob{FlowJob: runner.NewFlowJob(JobName, JobName, flow, jobRepository, listeners)}
}

// ValidateParameters はフロー定義の整合性と ETL ステップの有無を確認します。
func (j *WeatherJob) ValidateParameters(params core.JobParameters) error {
	if err := j.FlowJob.ValidateParameters(params); err != nil {
		return err
	}
	flow := j.GetFlow()
	for _, id := range RequiredSteps {
		if _, ok := flow.Elements[id]; !ok {
			return exception.NewBatchErrorf(JobName, "フローにステップ '%s' が定義されていません", id)
		}
	}
	return nil
}
