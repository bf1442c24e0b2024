package component

import (
	config "github.com/tigerroll/weather_etl/pkg/batch/config"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
)

// TaskletBuilder は JSL から参照される Tasklet を生成するための関数型です。
// properties には JSL の ComponentRef.Properties が渡されます。
type TaskletBuilder func(cfg *config.Config, properties map[string]string) (core.Tasklet, error)

// StepListenerBuilder は StepExecutionListener を生成するための関数型です。
type StepListenerBuilder func(cfg *config.Config) (core.StepExecutionListener, error)

// JobListenerBuilder は JobExecutionListener を生成するための関数型です。
type JobListenerBuilder func(cfg *config.Config) (core.JobExecutionListener, error)

// JobParametersIncrementerBuilder は JobParametersIncrementer を生成するための関数型です。
type JobParametersIncrementerBuilder func(cfg *config.Config, properties map[string]string) (core.JobParametersIncrementer, error)
