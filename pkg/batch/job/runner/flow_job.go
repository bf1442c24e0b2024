package runner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// FlowJob は JSL で定義されたフローに基づいてステップを順次実行する core.Job の実装です。
// ステップが失敗した場合は遷移ルールに従い、以降のステップは実行されません。
type FlowJob struct {
	id            string
	name          string
	flow          *core.FlowDefinition
	jobRepository job.JobRepository
	jobListeners  []core.JobExecutionListener
}

var _ core.Job = (*FlowJob)(nil)

// NewFlowJob は新しい FlowJob のインスタンスを作成します。
func NewFlowJob(
	id string,
	name string,
	flow *core.FlowDefinition,
	jobRepository job.JobRepository,
	jobListeners []core.JobExecutionListener,
) *FlowJob {
	return &FlowJob{
		id:            id,
		name:          name,
		flow:          flow,
		jobRepository: jobRepository,
		jobListeners:  jobListeners,
	}
}

// JobID はジョブのIDを返します。
func (j *FlowJob) JobID() string {
	return j.id
}

// JobName はジョブ名を返します。
func (j *FlowJob) JobName() string {
	return j.name
}

// GetFlow はジョブのフロー定義を返します。
func (j *FlowJob) GetFlow() *core.FlowDefinition {
	return j.flow
}

// ValidateParameters はジョブパラメータのバリデーションを行います。
// FlowJob 自体は必須パラメータを持たないため、フロー定義の整合性のみ確認します。
func (j *FlowJob) ValidateParameters(params core.JobParameters) error {
	logger.Debugf("ジョブ '%s': JobParameters のバリデーションを実行するよ。Parameters: %+v", j.name, params.Params)
	if j.flow == nil {
		return exception.NewBatchErrorf(j.name, "フロー定義が設定されていません")
	}
	if _, ok := j.flow.Elements[j.flow.StartElement]; !ok {
		return exception.NewBatchErrorf(j.name, "開始要素 '%s' がフローに存在しません", j.flow.StartElement)
	}
	return nil
}

func (j *FlowJob) notifyBeforeJob(ctx context.Context, jobExecution *core.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *FlowJob) notifyAfterJob(ctx context.Context, jobExecution *core.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run はフロー定義に基づいてステップを実行します。
// 戻り値のエラーは実行基盤側の異常 (要素の欠落、永続化の失敗、キャンセル) を表します。
// ステップの失敗は JobExecution の状態 (FAILED) と Failures に記録されます。
func (j *FlowJob) Run(ctx context.Context, jobExecution *core.JobExecution, jobParameters core.JobParameters) error {
	logger.Infof("ジョブ '%s' (Execution ID: %s) を始めるよ。", j.name, jobExecution.ID)

	j.notifyBeforeJob(ctx, jobExecution)

	defer func() {
		if jobExecution.EndTime.IsZero() {
			jobExecution.EndTime = time.Now()
		}
		j.notifyAfterJob(ctx, jobExecution)

		logger.Infof("ジョブ '%s' (Execution ID: %s) が終了したよ。最終ステータス: %s, 終了ステータス: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	}()

	currentElementID := j.flow.StartElement

	for currentElementID != "" {
		select {
		case <-ctx.Done():
			logger.Warnf("Context がキャンセルされたため、ジョブ '%s' の実行を中断するよ: %v", j.name, ctx.Err())
			jobExecution.AddFailureException(ctx.Err())
			jobExecution.MarkAsStopped()
			return ctx.Err()
		default:
		}

		element, ok := j.flow.Elements[currentElementID]
		if !ok {
			err := exception.NewBatchErrorf(j.name, "フロー要素 '%s' が見つからないよ", currentElementID)
			logger.Errorf("ジョブ '%s': %v", j.name, err)
			jobExecution.MarkAsFailed(err)
			return err
		}

		step, ok := element.(core.Step)
		if !ok {
			err := exception.NewBatchErrorf(j.name, "不明なフロー要素の型だよ: %T (ID: %s)", element, currentElementID)
			logger.Errorf("ジョブ '%s': %v", j.name, err)
			jobExecution.MarkAsFailed(err)
			return err
		}

		stepName := step.StepName()
		jobExecution.CurrentStepName = stepName

		stepExecution := core.NewStepExecution(uuid.New().String(), jobExecution, stepName)
		jobExecution.AddStepExecution(stepExecution)
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			logger.Errorf("ジョブ '%s': StepExecution (ID: %s) の保存に失敗しました: %v", j.name, stepExecution.ID, err)
			batchErr := exception.NewBatchError(j.name, "StepExecution の保存エラー", err)
			jobExecution.MarkAsFailed(batchErr)
			return batchErr
		}
		logger.Debugf("ジョブ '%s': ステップ '%s' の StepExecution (ID: %s) を作成したよ。", j.name, stepName, stepExecution.ID)

		stepErr := step.Execute(ctx, jobExecution, stepExecution)
		exitStatus := stepExecution.ExitStatus

		if stepErr != nil {
			logger.Errorf("ジョブ '%s': ステップ '%s' の実行中にエラーが発生したよ: %v", j.name, stepName, stepErr)
			jobExecution.AddFailureException(stepErr)
			if errors.Is(stepErr, context.Canceled) {
				jobExecution.MarkAsStopped()
				return stepErr
			}
		} else {
			logger.Infof("ジョブ '%s': ステップ '%s' が正常に完了したよ。ExitStatus: %s", j.name, stepName, exitStatus)
		}

		transition, found := j.flow.GetTransitionRule(element.ID(), exitStatus, stepErr != nil)
		if !found {
			if stepErr == nil {
				logger.Infof("ジョブ '%s': フロー要素 '%s' からの遷移ルールが見つからないよ。ジョブを完了するよ。", j.name, element.ID())
				jobExecution.MarkAsCompleted()
			} else {
				logger.Errorf("ジョブ '%s': フロー要素 '%s' でエラーが発生したけど、適切な遷移ルールが見つからないよ。ジョブを失敗として終了するよ。", j.name, element.ID())
				jobExecution.MarkAsFailed(stepErr)
			}
			break
		}

		if transition.End {
			logger.Infof("ジョブ '%s': フロー要素 '%s' から 'End' 遷移が指示されたよ。ジョブを完了するよ。", j.name, element.ID())
			if stepErr != nil {
				jobExecution.MarkAsFailed(stepErr)
			} else {
				jobExecution.MarkAsCompleted()
			}
			break
		}
		if transition.Fail {
			logger.Errorf("ジョブ '%s': フロー要素 '%s' から 'Fail' 遷移が指示されたよ。ジョブを失敗として終了するよ。", j.name, element.ID())
			failErr := stepErr
			if failErr == nil {
				failErr = exception.NewBatchErrorf(j.name, "フロー要素 '%s' からの Fail 遷移 (ExitStatus: %s)", element.ID(), exitStatus)
			}
			jobExecution.MarkAsFailed(failErr)
			break
		}
		if transition.Stop {
			logger.Infof("ジョブ '%s': フロー要素 '%s' から 'Stop' 遷移が指示されたよ。ジョブを停止するよ。", j.name, element.ID())
			jobExecution.MarkAsStopped()
			break
		}

		currentElementID = transition.To
		if currentElementID == "" {
			// To のない遷移はフローの終端として扱う
			if stepErr != nil {
				jobExecution.MarkAsFailed(stepErr)
			} else {
				jobExecution.MarkAsCompleted()
			}
		}
	}

	return nil
}
