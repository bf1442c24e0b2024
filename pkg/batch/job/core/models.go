package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// JobStatus はジョブおよびステップ実行の状態 (BatchStatus) を表します。
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusStopping  JobStatus = "STOPPING"
	BatchStatusStopped   JobStatus = "STOPPED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// IsFinished は JobStatus が終了状態かどうかを判定するヘルパーメソッドです。
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// ToExitStatus は JobStatus を対応する ExitStatus に変換します。
func (s JobStatus) ToExitStatus() ExitStatus {
	switch s {
	case BatchStatusCompleted:
		return ExitStatusCompleted
	case BatchStatusFailed:
		return ExitStatusFailed
	case BatchStatusStopped:
		return ExitStatusStopped
	case BatchStatusAbandoned:
		return ExitStatusAbandoned
	default:
		return ExitStatusUnknown
	}
}

// ExitStatus はジョブ/ステップの終了時の詳細なステータスを表します。
// JSL の遷移ルール (on) はこの値と照合されます。
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusStopped   ExitStatus = "STOPPED"
	ExitStatusAbandoned ExitStatus = "ABANDONED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
)

// JobParameters はジョブ実行時のパラメータを保持する構造体です。
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters は新しい JobParameters のインスタンスを作成します。
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put はパラメータを設定します。
func (p JobParameters) Put(key string, value interface{}) {
	p.Params[key] = value
}

// Get はパラメータを取得します。
func (p JobParameters) Get(key string) (interface{}, bool) {
	v, ok := p.Params[key]
	return v, ok
}

// GetString は文字列パラメータを取得します。
func (p JobParameters) GetString(key string) (string, bool) {
	v, ok := p.Params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Hash はパラメータ集合を一意に識別するハッシュ値を返します。キーの順序には依存しません。
func (p JobParameters) Hash() string {
	keys := make([]string, 0, len(p.Params))
	for k := range p.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, p.Params[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// JobInstance はジョブ名とパラメータの組で識別される論理的な実行単位です。
type JobInstance struct {
	ID             string
	JobName        string
	Parameters     JobParameters
	ParametersHash string
	CreateTime     time.Time
}

// NewJobInstance は新しい JobInstance を作成します。
func NewJobInstance(jobName string, params JobParameters) *JobInstance {
	return &JobInstance{
		ID:             uuid.New().String(),
		JobName:        jobName,
		Parameters:     params,
		ParametersHash: params.Hash(),
		CreateTime:     time.Now(),
	}
}

// JobExecution はジョブの単一の実行インスタンスを表す構造体です。
type JobExecution struct {
	ID               string
	JobInstanceID    string
	JobName          string
	Parameters       JobParameters
	StartTime        time.Time
	EndTime          time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         []error
	CreateTime       time.Time
	LastUpdated      time.Time
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext
	CurrentStepName  string
	CancelFunc       context.CancelFunc
}

// NewJobExecution は新しい JobExecution のインスタンスを作成します。
func NewJobExecution(jobInstanceID, jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:               uuid.New().String(),
		JobInstanceID:    jobInstanceID,
		JobName:          jobName,
		Parameters:       params,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		Failures:         make([]error, 0),
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

// MarkAsStarted は JobExecution の状態を実行中に更新します。
func (je *JobExecution) MarkAsStarted() {
	now := time.Now()
	je.Status = BatchStatusStarted
	je.StartTime = now
	je.LastUpdated = now
}

// MarkAsCompleted は JobExecution の状態を完了に更新します。
func (je *JobExecution) MarkAsCompleted() {
	now := time.Now()
	je.Status = BatchStatusCompleted
	je.ExitStatus = ExitStatusCompleted
	je.EndTime = now
	je.LastUpdated = now
}

// MarkAsFailed は JobExecution の状態を失敗に更新し、エラー情報を追加します。
func (je *JobExecution) MarkAsFailed(err error) {
	now := time.Now()
	je.Status = BatchStatusFailed
	je.ExitStatus = ExitStatusFailed
	je.EndTime = now
	je.LastUpdated = now
	je.AddFailureException(err)
}

// MarkAsStopped は JobExecution の状態を停止に更新します。
func (je *JobExecution) MarkAsStopped() {
	now := time.Now()
	je.Status = BatchStatusStopped
	je.ExitStatus = ExitStatusStopped
	je.EndTime = now
	je.LastUpdated = now
}

// AddFailureException は JobExecution にエラー情報を追加します。同一のエラーは重複して追加しません。
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	for _, f := range je.Failures {
		if errors.Is(f, err) {
			return
		}
	}
	je.Failures = append(je.Failures, err)
	je.LastUpdated = time.Now()
}

// AddStepExecution は StepExecution を JobExecution に追加します。
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// StepExecution はステップの単一の実行インスタンスを表す構造体です。
type StepExecution struct {
	ID               string
	StepName         string
	JobExecution     *JobExecution // 所属するジョブ実行への参照
	StartTime        time.Time
	EndTime          time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         []error
	ReadCount        int
	WriteCount       int
	FilterCount      int
	ExecutionContext ExecutionContext
	LastUpdated      time.Time
}

// NewStepExecution は新しい StepExecution のインスタンスを作成します。
// JobExecution への追加は呼び出し側が AddStepExecution で行います。
func NewStepExecution(id string, jobExecution *JobExecution, stepName string) *StepExecution {
	return &StepExecution{
		ID:               id,
		StepName:         stepName,
		JobExecution:     jobExecution,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make([]error, 0),
		ExecutionContext: NewExecutionContext(),
		LastUpdated:      time.Now(),
	}
}

// MarkAsStarted は StepExecution の状態を実行中に更新します。
func (se *StepExecution) MarkAsStarted() {
	now := time.Now()
	se.Status = BatchStatusStarted
	se.StartTime = now
	se.LastUpdated = now
}

// MarkAsCompleted は StepExecution の状態を完了に更新します。
func (se *StepExecution) MarkAsCompleted() {
	now := time.Now()
	se.Status = BatchStatusCompleted
	se.ExitStatus = ExitStatusCompleted
	se.EndTime = now
	se.LastUpdated = now
}

// MarkAsFailed は StepExecution の状態を失敗に更新し、エラー情報を追加します。
func (se *StepExecution) MarkAsFailed(err error) {
	now := time.Now()
	se.Status = BatchStatusFailed
	se.ExitStatus = ExitStatusFailed
	se.EndTime = now
	se.LastUpdated = now
	se.AddFailureException(err)
}

// AddFailureException は StepExecution にエラー情報を追加します。
func (se *StepExecution) AddFailureException(err error) {
	if err != nil {
		se.Failures = append(se.Failures, err)
		se.LastUpdated = time.Now()
	}
}

// Duration はステップの実行時間を返します。終了していない場合は 0 を返します。
func (se *StepExecution) Duration() time.Duration {
	if se.StartTime.IsZero() || se.EndTime.IsZero() {
		return 0
	}
	return se.EndTime.Sub(se.StartTime)
}
