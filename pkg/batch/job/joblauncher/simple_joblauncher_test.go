package joblauncher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/job/incrementer"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/memory"
	"github.com/tigerroll/weather_etl/pkg/batch/util/clock"
)

type stubJob struct {
	name   string
	runErr error
	fail   bool
	ran    int
}

func (j *stubJob) JobName() string                           { return j.name }
func (j *stubJob) GetFlow() *core.FlowDefinition             { return nil }
func (j *stubJob) ValidateParameters(core.JobParameters) error { return nil }

func (j *stubJob) Run(ctx context.Context, je *core.JobExecution, params core.JobParameters) error {
	j.ran++
	if j.fail {
		je.MarkAsFailed(errors.New("step failed"))
		return j.runErr
	}
	je.MarkAsCompleted()
	return j.runErr
}

type stubProvider struct {
	job         core.Job
	createErr   error
	incrementer core.JobParametersIncrementer
}

func (p *stubProvider) CreateJob(string) (core.Job, error) { return p.job, p.createErr }
func (p *stubProvider) GetJobParametersIncrementer(string) core.JobParametersIncrementer {
	return p.incrementer
}

func TestSimpleJobLauncher_PersistsCompletedExecution(t *testing.T) {
	repo := memory.NewJobRepository()
	job := &stubJob{name: "weatherJob"}
	launcher := NewSimpleJobLauncher(repo, &stubProvider{job: job})

	je, err := launcher.Launch(context.Background(), "weatherJob", core.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, 1, job.ran)
	assert.Equal(t, core.BatchStatusCompleted, je.Status)
	assert.False(t, je.StartTime.IsZero())

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, stored.Status)

	instance, err := repo.FindJobInstanceByID(context.Background(), je.JobInstanceID)
	require.NoError(t, err)
	assert.Equal(t, "weatherJob", instance.JobName)
}

func TestSimpleJobLauncher_FailedRunIsRecorded(t *testing.T) {
	repo := memory.NewJobRepository()
	launcher := NewSimpleJobLauncher(repo, &stubProvider{job: &stubJob{name: "weatherJob", fail: true}})

	je, err := launcher.Launch(context.Background(), "weatherJob", core.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusFailed, je.Status)
	assert.NotEmpty(t, je.Failures)
}

func TestSimpleJobLauncher_CreateJobError(t *testing.T) {
	launcher := NewSimpleJobLauncher(memory.NewJobRepository(), &stubProvider{createErr: errors.New("unknown job")})

	je, err := launcher.Launch(context.Background(), "missing", core.NewJobParameters())
	assert.Error(t, err)
	assert.Nil(t, je)
}

func TestSimpleJobLauncher_IncrementerCreatesNewInstancePerRun(t *testing.T) {
	repo := memory.NewJobRepository()
	clk := clock.NewTicking(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Second)
	provider := &stubProvider{
		job:         &stubJob{name: "weatherJob"},
		incrementer: incrementer.NewTimestampIncrementer("run.timestamp", clk),
	}
	launcher := NewSimpleJobLauncher(repo, provider)

	first, err := launcher.Launch(context.Background(), "weatherJob", core.NewJobParameters())
	require.NoError(t, err)
	second, err := launcher.Launch(context.Background(), "weatherJob", core.NewJobParameters())
	require.NoError(t, err)

	assert.NotEqual(t, first.JobInstanceID, second.JobInstanceID)
	_, ok := first.Parameters.GetString("run.timestamp")
	assert.True(t, ok)
}
