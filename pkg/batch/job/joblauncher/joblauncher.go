package joblauncher

import (
	"context"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
)

// JobLauncher は Job を JobParameters とともに起動するためのインターフェースです。
type JobLauncher interface {
	// Launch は指定されたジョブ名の Job を JobParameters とともに起動し、JobExecution を返します。
	// 返されるエラーは起動処理や実行基盤のエラーです。ステップの失敗は JobExecution の状態に記録されます。
	Launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error)
}

// JobProvider は JobLauncher が Job と JobParametersIncrementer を取得するための依存です。
// factory.JobFactory がこれを満たします。
type JobProvider interface {
	CreateJob(jobName string) (core.Job, error)
	GetJobParametersIncrementer(jobName string) core.JobParametersIncrementer
}
