package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
)

func TestJobRepository_InstanceLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	params := core.NewJobParameters()
	params.Put("run.timestamp", "1700000000000")
	ji := core.NewJobInstance("weatherJob", params)
	require.NoError(t, repo.SaveJobInstance(ctx, ji))
	assert.Error(t, repo.SaveJobInstance(ctx, ji))

	found, err := repo.FindJobInstanceByJobNameAndParameters(ctx, "weatherJob", params)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ji.ID, found.ID)

	other := core.NewJobParameters()
	other.Put("run.timestamp", "1700000000001")
	found, err = repo.FindJobInstanceByJobNameAndParameters(ctx, "weatherJob", other)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestJobRepository_ExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	je := core.NewJobExecution("instance-1", "weatherJob", core.NewJobParameters())
	require.Error(t, repo.UpdateJobExecution(ctx, je))
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	se := core.NewStepExecution("step-1", je, "extractStep")
	je.AddStepExecution(se)
	require.NoError(t, repo.SaveStepExecution(ctx, se))

	se.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, se))
	je.MarkAsCompleted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	got, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, got.Status)

	steps, err := repo.FindStepExecutionsByJobExecutionID(ctx, je.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "extractStep", steps[0].StepName)

	execs, err := repo.FindJobExecutionsByJobInstanceID(ctx, "instance-1")
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}
