package step

import (
	"context"
	"time"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// TaskletStep は Tasklet インターフェースをラップし、core.Step インターフェースを実装します。
type TaskletStep struct {
	name                      string
	tasklet                   core.Tasklet
	stepListeners             []core.StepExecutionListener
	jobRepository             job.JobRepository
	executionContextPromotion *core.ExecutionContextPromotion
}

var _ core.Step = (*TaskletStep)(nil)

// NewTaskletStep は新しい TaskletStep のインスタンスを作成します。
func NewTaskletStep(
	name string,
	tasklet core.Tasklet,
	jobRepository job.JobRepository,
	stepListeners []core.StepExecutionListener,
	executionContextPromotion *core.ExecutionContextPromotion,
) *TaskletStep {
	return &TaskletStep{
		name:                      name,
		tasklet:                   tasklet,
		jobRepository:             jobRepository,
		stepListeners:             stepListeners,
		executionContextPromotion: executionContextPromotion,
	}
}

// StepName はステップ名を返します。
func (s *TaskletStep) StepName() string {
	return s.name
}

// ID はステップのIDを返します。
func (s *TaskletStep) ID() string {
	return s.name
}

func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *core.StepExecution) {
	for _, l := range s.stepListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *core.StepExecution) {
	for _, l := range s.stepListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// promoteExecutionContext は StepExecutionContext の指定されたキーを JobExecutionContext にプロモートします。
func (s *TaskletStep) promoteExecutionContext(jobExecution *core.JobExecution, stepExecution *core.StepExecution) {
	if s.executionContextPromotion == nil || len(s.executionContextPromotion.Keys) == 0 {
		return
	}

	for _, key := range s.executionContextPromotion.Keys {
		val, ok := stepExecution.ExecutionContext.GetNested(key)
		if !ok {
			logger.Warnf("Taskletステップ '%s': StepExecutionContext にプロモート対象のキー '%s' が見つかりませんでした。", s.name, key)
			continue
		}
		jobLevelKey := key
		if mapped, found := s.executionContextPromotion.JobLevelKeys[key]; found {
			jobLevelKey = mapped
		}
		jobExecution.ExecutionContext.PutNested(jobLevelKey, val)
		logger.Debugf("Taskletステップ '%s': キー '%s' を JobExecutionContext の '%s' にプロモートしました。", s.name, key, jobLevelKey)
	}
}

// Execute は TaskletStep の処理を実行します。
// Tasklet がエラーを返した場合、ステップは FAILED となり、エラーは BatchError として呼び出し元に返されます。
// ExecutionContext のプロモーションはステップが COMPLETED で終了した場合のみ行います。
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *core.JobExecution, stepExecution *core.StepExecution) (err error) {
	logger.Infof("Taskletステップ '%s' (Execution ID: %s) を始めるよ。", s.name, stepExecution.ID)

	// 前のステップがプロモートした値を Tasklet から参照できるよう、JobExecutionContext を引き継ぎます。
	if err := s.tasklet.SetExecutionContext(ctx, jobExecution.ExecutionContext); err != nil {
		stepExecution.MarkAsFailed(err)
		return exception.NewBatchError(s.name, "Tasklet への ExecutionContext 設定に失敗しました", err)
	}

	stepExecution.MarkAsStarted()
	s.notifyBeforeStep(ctx, stepExecution)

	defer func() {
		if cerr := s.tasklet.Close(ctx); cerr != nil {
			logger.Errorf("Taskletステップ '%s': Tasklet のクローズに失敗したよ: %v", s.name, cerr)
			stepExecution.AddFailureException(cerr)
		}

		if stepExecution.EndTime.IsZero() {
			stepExecution.EndTime = time.Now()
		}
		s.notifyAfterStep(ctx, stepExecution)

		if stepExecution.Status == core.BatchStatusCompleted {
			s.promoteExecutionContext(jobExecution, stepExecution)
		}

		if uerr := s.jobRepository.UpdateStepExecution(ctx, stepExecution); uerr != nil {
			logger.Errorf("Taskletステップ '%s': StepExecution の更新に失敗したよ: %v", s.name, uerr)
			if err == nil {
				stepExecution.MarkAsFailed(uerr)
				err = exception.NewBatchError(s.name, "StepExecution の更新エラー", uerr)
			}
		}
	}()

	exitStatus, execErr := s.tasklet.Execute(ctx, stepExecution)
	if execErr != nil {
		logger.Errorf("Taskletステップ '%s' の実行中にエラーが発生したよ: %v", s.name, execErr)
		stepExecution.MarkAsFailed(execErr)
		return exception.NewBatchError(s.name, "Tasklet 実行エラー", execErr)
	}

	taskletEC, ecErr := s.tasklet.GetExecutionContext(ctx)
	if ecErr != nil {
		stepExecution.MarkAsFailed(ecErr)
		return exception.NewBatchError(s.name, "Tasklet の ExecutionContext 取得エラー", ecErr)
	}
	for k, v := range taskletEC {
		stepExecution.ExecutionContext.Put(k, v)
	}

	if exitStatus == core.ExitStatusCompleted {
		stepExecution.MarkAsCompleted()
		logger.Infof("Taskletステップ '%s' が正常に完了したよ。ExitStatus: %s", s.name, exitStatus)
		return nil
	}

	failErr := exception.NewBatchErrorf(s.name, "Tasklet が完了以外の ExitStatus を返しました: %s", exitStatus)
	stepExecution.MarkAsFailed(failErr)
	stepExecution.ExitStatus = exitStatus
	return failErr
}
