package step

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/memory"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
)

type fakeTasklet struct {
	input   core.ExecutionContext
	output  core.ExecutionContext
	status  core.ExitStatus
	err     error
	closed  bool
	sawKeys []string
}

func (t *fakeTasklet) Execute(ctx context.Context, se *core.StepExecution) (core.ExitStatus, error) {
	for k := range t.input {
		t.sawKeys = append(t.sawKeys, k)
	}
	return t.status, t.err
}

func (t *fakeTasklet) Close(ctx context.Context) error { t.closed = true; return nil }

func (t *fakeTasklet) SetExecutionContext(ctx context.Context, ec core.ExecutionContext) error {
	t.input = ec
	return nil
}

func (t *fakeTasklet) GetExecutionContext(ctx context.Context) (core.ExecutionContext, error) {
	return t.output, nil
}

type recordingListener struct{ before, after int }

func (l *recordingListener) BeforeStep(ctx context.Context, se *core.StepExecution) { l.before++ }
func (l *recordingListener) AfterStep(ctx context.Context, se *core.StepExecution)  { l.after++ }

func newExecutions(t *testing.T, repo *memory.JobRepository, stepName string) (*core.JobExecution, *core.StepExecution) {
	t.Helper()
	je := core.NewJobExecution("instance", "weatherJob", core.NewJobParameters())
	se := core.NewStepExecution(stepName+"-id", je, stepName)
	je.AddStepExecution(se)
	require.NoError(t, repo.SaveStepExecution(context.Background(), se))
	return je, se
}

func TestTaskletStep_CompletedPromotesKeys(t *testing.T) {
	repo := memory.NewJobRepository()
	je, se := newExecutions(t, repo, "extractStep")
	je.ExecutionContext.Put("upstream", "value")

	output := core.NewExecutionContext()
	output.PutNested("weather.rawPayload", "payload")
	tasklet := &fakeTasklet{status: core.ExitStatusCompleted, output: output}
	listener := &recordingListener{}

	s := NewTaskletStep("extractStep", tasklet, repo, []core.StepExecutionListener{listener},
		&core.ExecutionContextPromotion{Keys: []string{"weather.rawPayload"}})

	require.NoError(t, s.Execute(context.Background(), je, se))
	assert.Equal(t, core.BatchStatusCompleted, se.Status)
	assert.True(t, tasklet.closed)
	assert.Contains(t, tasklet.sawKeys, "upstream")
	assert.Equal(t, 1, listener.before)
	assert.Equal(t, 1, listener.after)

	v, ok := je.ExecutionContext.GetNested("weather.rawPayload")
	require.True(t, ok)
	assert.Equal(t, "payload", v)
}

func TestTaskletStep_ErrorMarksFailed(t *testing.T) {
	repo := memory.NewJobRepository()
	je, se := newExecutions(t, repo, "transformStep")

	output := core.NewExecutionContext()
	output.PutNested("weather.cleanRecords", 1)
	tasklet := &fakeTasklet{err: errors.New("missing key ts"), output: output}
	s := NewTaskletStep("transformStep", tasklet, repo, nil,
		&core.ExecutionContextPromotion{Keys: []string{"weather.cleanRecords"}})

	err := s.Execute(context.Background(), je, se)
	require.Error(t, err)
	module, ok := exception.ModuleOf(err)
	require.True(t, ok)
	assert.Equal(t, "transformStep", module)
	assert.Equal(t, core.BatchStatusFailed, se.Status)
	assert.Equal(t, core.ExitStatusFailed, se.ExitStatus)
	assert.True(t, tasklet.closed)

	_, promoted := je.ExecutionContext.GetNested("weather.cleanRecords")
	assert.False(t, promoted)
}

func TestTaskletStep_NonCompletedExitStatusFails(t *testing.T) {
	repo := memory.NewJobRepository()
	je, se := newExecutions(t, repo, "saveRawFileStep")

	s := NewTaskletStep("saveRawFileStep", &fakeTasklet{status: core.ExitStatusNoOp}, repo, nil, nil)
	require.Error(t, s.Execute(context.Background(), je, se))
	assert.Equal(t, core.BatchStatusFailed, se.Status)
	assert.Equal(t, core.ExitStatusNoOp, se.ExitStatus)
}
