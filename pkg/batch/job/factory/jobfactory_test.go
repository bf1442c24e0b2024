package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/weather_etl/pkg/batch/config"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	jsl "github.com/tigerroll/weather_etl/pkg/batch/job/jsl"
	"github.com/tigerroll/weather_etl/pkg/batch/job/incrementer"
	"github.com/tigerroll/weather_etl/pkg/batch/job/runner"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/memory"
	"github.com/tigerroll/weather_etl/pkg/batch/util/clock"
)

const singleStepJob = `
id: pingJob
name: Ping Job
incrementer:
  ref: timestampIncrementer
  properties:
    name: run.timestamp
listeners:
  - ref: countingJobListener
flow:
  start-element: ping
  elements:
    ping:
      id: ping
      tasklet:
        ref: pingTasklet
      transitions:
        - on: COMPLETED
          end: true
        - on: "*"
          fail: true
`

type pingTasklet struct{}

func (pingTasklet) Execute(context.Context, *core.StepExecution) (core.ExitStatus, error) {
	return core.ExitStatusCompleted, nil
}
func (pingTasklet) Close(context.Context) error                                   { return nil }
func (pingTasklet) SetExecutionContext(context.Context, core.ExecutionContext) error { return nil }
func (pingTasklet) GetExecutionContext(context.Context) (core.ExecutionContext, error) {
	return core.NewExecutionContext(), nil
}

type countingJobListener struct{ after int }

func (l *countingJobListener) BeforeJob(context.Context, *core.JobExecution) {}
func (l *countingJobListener) AfterJob(context.Context, *core.JobExecution)  { l.after++ }

func newFactory(t *testing.T) (*JobFactory, *countingJobListener) {
	t.Helper()
	defs := jsl.NewRegistry()
	_, err := defs.LoadFromBytes([]byte(singleStepJob))
	require.NoError(t, err)

	listener := &countingJobListener{}
	f := NewJobFactory(config.NewConfig(), memory.NewJobRepository(), defs)
	f.RegisterTaskletBuilder("pingTasklet", func(*config.Config, map[string]string) (core.Tasklet, error) {
		return pingTasklet{}, nil
	})
	f.RegisterJobListenerBuilder("countingJobListener", func(*config.Config) (core.JobExecutionListener, error) {
		return listener, nil
	})
	f.RegisterJobParametersIncrementerBuilder("timestampIncrementer", func(cfg *config.Config, props map[string]string) (core.JobParametersIncrementer, error) {
		return incrementer.NewTimestampIncrementer(props["name"], clock.New()), nil
	})
	f.RegisterJobBuilder("pingJob", func(repo job.JobRepository, cfg *config.Config, ls []core.JobExecutionListener, flow *core.FlowDefinition) (core.Job, error) {
		return runner.NewFlowJob("pingJob", "pingJob", flow, repo, ls), nil
	})
	return f, listener
}

func TestJobFactory_CreateJobAndRun(t *testing.T) {
	f, listener := newFactory(t)

	batchJob, err := f.CreateJob("pingJob")
	require.NoError(t, err)
	assert.Equal(t, "pingJob", batchJob.JobName())

	je := core.NewJobExecution("instance", "pingJob", core.NewJobParameters())
	je.MarkAsStarted()
	require.NoError(t, batchJob.Run(context.Background(), je, je.Parameters))
	assert.Equal(t, core.BatchStatusCompleted, je.Status)
	assert.Equal(t, 1, listener.after)
}

func TestJobFactory_Incrementer(t *testing.T) {
	f, _ := newFactory(t)

	inc := f.GetJobParametersIncrementer("pingJob")
	require.NotNil(t, inc)
	_, ok := inc.GetNext(core.NewJobParameters()).GetString("run.timestamp")
	assert.True(t, ok)

	assert.Nil(t, f.GetJobParametersIncrementer("unknown"))
}

func TestJobFactory_UnknownJob(t *testing.T) {
	f, _ := newFactory(t)
	_, err := f.CreateJob("unknown")
	assert.Error(t, err)
}
