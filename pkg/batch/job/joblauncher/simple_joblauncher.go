package joblauncher

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

const module = "job_launcher"

// SimpleJobLauncher は JobLauncher インターフェースのシンプルな実装です。
// JobInstance と JobExecution のライフサイクルを JobRepository に永続化しながらジョブを同期実行します。
type SimpleJobLauncher struct {
	jobRepository job.JobRepository
	jobProvider   JobProvider
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)

// NewSimpleJobLauncher は新しい SimpleJobLauncher のインスタンスを作成します。
func NewSimpleJobLauncher(jobRepository job.JobRepository, jobProvider JobProvider) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository: jobRepository,
		jobProvider:   jobProvider,
	}
}

// Launch は指定された Job を JobParameters とともに起動し、JobExecution を管理します。
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error) {
	logger.Infof("JobLauncher を使用して Job '%s' を起動するよ。", jobName)

	batchJob, err := l.jobProvider.CreateJob(jobName)
	if err != nil {
		logger.Errorf("Job '%s' の作成に失敗しました: %v", jobName, err)
		return nil, exception.NewBatchErrorf(module, "Job '%s' の作成に失敗しました", jobName, err)
	}

	if incrementer := l.jobProvider.GetJobParametersIncrementer(jobName); incrementer != nil {
		params = incrementer.GetNext(params)
		logger.Debugf("JobParametersIncrementer を使用して新しい JobParameters を生成しました: %+v", params.Params)
	}

	if err := batchJob.ValidateParameters(params); err != nil {
		logger.Errorf("Job '%s': JobParameters のバリデーションに失敗しました: %v", jobName, err)
		return nil, exception.NewBatchError(module, "JobParameters のバリデーションエラー", err)
	}

	jobInstance, err := l.jobRepository.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
	if err != nil {
		return nil, exception.NewBatchError(module, "起動処理エラー: JobInstance の検索に失敗しました", err)
	}
	if jobInstance == nil {
		jobInstance = core.NewJobInstance(jobName, params)
		if err := l.jobRepository.SaveJobInstance(ctx, jobInstance); err != nil {
			return nil, exception.NewBatchError(module, "起動処理エラー: 新しい JobInstance の保存に失敗しました", err)
		}
		logger.Infof("新しい JobInstance (ID: %s, JobName: %s) を作成し保存しました。", jobInstance.ID, jobInstance.JobName)
	} else {
		logger.Infof("既存の JobInstance (ID: %s, JobName: %s) を使用します。", jobInstance.ID, jobInstance.JobName)
	}

	jobExecution := core.NewJobExecution(jobInstance.ID, jobName, params)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobExecution.CancelFunc = cancel

	if err := l.jobRepository.SaveJobExecution(jobCtx, jobExecution); err != nil {
		logger.Errorf("JobExecution (ID: %s) の初期永続化に失敗しました: %v", jobExecution.ID, err)
		return jobExecution, exception.NewBatchError(module, "起動処理エラー: JobExecution の初期保存に失敗しました", err)
	}

	jobExecution.MarkAsStarted()
	if err := l.jobRepository.UpdateJobExecution(jobCtx, jobExecution); err != nil {
		logger.Errorf("JobExecution (ID: %s) の Started 状態への更新に失敗しました: %v", jobExecution.ID, err)
		jobExecution.AddFailureException(exception.NewBatchError(module, "JobExecution 状態更新エラー (Started)", err))
	}

	logger.Infof("Job '%s' (Execution ID: %s, Job Instance ID: %s) を実行するよ。", jobName, jobExecution.ID, jobInstance.ID)
	runErr := batchJob.Run(jobCtx, jobExecution, params)

	// キャンセル後でも最終状態を記録できるよう、キャンセルを引き継がない Context で更新する
	if updateErr := l.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); updateErr != nil {
		logger.Errorf("JobExecution (ID: %s) の最終状態の更新に失敗しました: %v", jobExecution.ID, updateErr)
		wrapped := exception.NewBatchError(module, "JobExecution 最終状態の永続化に失敗しました", updateErr)
		jobExecution.AddFailureException(wrapped)
		if runErr == nil {
			runErr = wrapped
		}
	} else {
		logger.Debugf("JobExecution (ID: %s) を JobRepository で最終状態 (%s) に更新しました。", jobExecution.ID, jobExecution.Status)
	}

	return jobExecution, runErr
}
