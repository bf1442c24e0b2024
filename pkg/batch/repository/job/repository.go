package job

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
)

// JobInstance は JobInstance の永続化と取得に関する操作を定義します。
type JobInstance interface {
	// SaveJobInstance は新しい JobInstance を永続化します。
	SaveJobInstance(ctx context.Context, jobInstance *core.JobInstance) error
	// FindJobInstanceByJobNameAndParameters は指定されたジョブ名とパラメータに一致する JobInstance を検索します。
	// 見つからない場合は nil, nil を返します。
	FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error)
	// FindJobInstanceByID は指定された ID の JobInstance を検索します。
	FindJobInstanceByID(ctx context.Context, instanceID string) (*core.JobInstance, error)
}

// JobExecution は JobExecution の永続化と取得に関する操作を定義します。
type JobExecution interface {
	// SaveJobExecution は新しい JobExecution を永続化します。
	SaveJobExecution(ctx context.Context, jobExecution *core.JobExecution) error
	// UpdateJobExecution は既存の JobExecution の状態を更新します。
	UpdateJobExecution(ctx context.Context, jobExecution *core.JobExecution) error
	// FindJobExecutionByID は指定された ID の JobExecution を検索します。関連する StepExecution もロードされます。
	FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error)
	// FindJobExecutionsByJobInstanceID は指定された JobInstance に関連する全ての JobExecution を作成順に返します。
	FindJobExecutionsByJobInstanceID(ctx context.Context, jobInstanceID string) ([]*core.JobExecution, error)
}

// StepExecution は StepExecution の永続化と取得に関する操作を定義します。
type StepExecution interface {
	// SaveStepExecution は新しい StepExecution を永続化します。
	SaveStepExecution(ctx context.Context, stepExecution *core.StepExecution) error
	// UpdateStepExecution は既存の StepExecution の状態を更新します。
	UpdateStepExecution(ctx context.Context, stepExecution *core.StepExecution) error
	// FindStepExecutionsByJobExecutionID は指定された JobExecution ID に関連する全ての StepExecution を返します。
	FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error)
}

// JobRepository はバッチ実行に関するメタデータを永続化・管理するためのインターフェースです。
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution

	// Close はリポジトリが使用するリソース (データベース接続など) を解放します。
	Close() error
}
