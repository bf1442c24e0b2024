package core

import "context"

// FlowElement はフロー内の要素の共通インターフェースです。
type FlowElement interface {
	ID() string
}

// Job は実行可能なバッチジョブのインターフェースです。
type Job interface {
	Run(ctx context.Context, jobExecution *JobExecution, jobParameters JobParameters) error
	JobName() string
	GetFlow() *FlowDefinition
	ValidateParameters(params JobParameters) error
}

// Step はジョブ内で実行される単一のステップのインターフェースです。
type Step interface {
	Execute(ctx context.Context, jobExecution *JobExecution, stepExecution *StepExecution) error
	StepName() string
	ID() string
}

// Tasklet は単一の操作を実行するステップのインターフェースです。
type Tasklet interface {
	// Execute は Tasklet のビジネスロジックを実行します。
	// 処理が成功した場合は COMPLETED などの ExitStatus を返し、エラーが発生した場合はエラーを返します。
	Execute(ctx context.Context, stepExecution *StepExecution) (ExitStatus, error)
	// Close はリソースを解放するためのメソッドです。
	Close(ctx context.Context) error
	SetExecutionContext(ctx context.Context, ec ExecutionContext) error
	GetExecutionContext(ctx context.Context) (ExecutionContext, error)
}

// StepExecutionListener はステップ実行イベントを処理するためのインターフェースです。
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *StepExecution)
	AfterStep(ctx context.Context, stepExecution *StepExecution)
}

// JobExecutionListener はジョブ実行イベントを処理するためのインターフェースです。
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *JobExecution)
	AfterJob(ctx context.Context, jobExecution *JobExecution)
}

// JobParametersIncrementer は JobParameters を自動的にインクリメントするためのインターフェースです。
type JobParametersIncrementer interface {
	GetNext(params JobParameters) JobParameters
}
