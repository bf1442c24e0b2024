package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/memory"
)

type scriptedStep struct {
	name  string
	err   error
	calls *[]string
}

func (s *scriptedStep) ID() string       { return s.name }
func (s *scriptedStep) StepName() string { return s.name }

func (s *scriptedStep) Execute(ctx context.Context, je *core.JobExecution, se *core.StepExecution) error {
	*s.calls = append(*s.calls, s.name)
	if s.err != nil {
		se.MarkAsFailed(s.err)
		return s.err
	}
	se.MarkAsCompleted()
	return nil
}

type countingJobListener struct{ before, after int }

func (l *countingJobListener) BeforeJob(ctx context.Context, je *core.JobExecution) { l.before++ }
func (l *countingJobListener) AfterJob(ctx context.Context, je *core.JobExecution)  { l.after++ }

// buildLinearFlow は steps を順に COMPLETED で繋ぎ、FAILED で失敗させるフローを作るよ。
func buildLinearFlow(steps ...*scriptedStep) *core.FlowDefinition {
	flow := core.NewFlowDefinition(steps[0].name)
	for i, s := range steps {
		flow.AddElement(s.name, s)
		if i+1 < len(steps) {
			flow.AddTransitionRule(s.name, core.Transition{On: "COMPLETED", To: steps[i+1].name})
		} else {
			flow.AddTransitionRule(s.name, core.Transition{On: "COMPLETED", End: true})
		}
		flow.AddTransitionRule(s.name, core.Transition{On: "FAILED", Fail: true})
	}
	return flow
}

func TestFlowJob_RunsAllStepsInOrder(t *testing.T) {
	var calls []string
	steps := []*scriptedStep{
		{name: "extractStep", calls: &calls},
		{name: "saveRawFileStep", calls: &calls},
		{name: "transformStep", calls: &calls},
	}
	repo := memory.NewJobRepository()
	listener := &countingJobListener{}
	job := NewFlowJob("weatherJob", "weatherJob", buildLinearFlow(steps...), repo, []core.JobExecutionListener{listener})

	je := core.NewJobExecution("instance", "weatherJob", core.NewJobParameters())
	je.MarkAsStarted()
	require.NoError(t, job.Run(context.Background(), je, je.Parameters))

	assert.Equal(t, []string{"extractStep", "saveRawFileStep", "transformStep"}, calls)
	assert.Equal(t, core.BatchStatusCompleted, je.Status)
	assert.Equal(t, core.ExitStatusCompleted, je.ExitStatus)
	assert.Len(t, je.StepExecutions, 3)
	assert.Equal(t, 1, listener.before)
	assert.Equal(t, 1, listener.after)

	saved, err := repo.FindStepExecutionsByJobExecutionID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Len(t, saved, 3)
}

func TestFlowJob_StopsAtFirstFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	steps := []*scriptedStep{
		{name: "extractStep", calls: &calls},
		{name: "saveRawFileStep", calls: &calls, err: boom},
		{name: "transformStep", calls: &calls},
	}
	job := NewFlowJob("weatherJob", "weatherJob", buildLinearFlow(steps...), memory.NewJobRepository(), nil)

	je := core.NewJobExecution("instance", "weatherJob", core.NewJobParameters())
	je.MarkAsStarted()
	require.NoError(t, job.Run(context.Background(), je, je.Parameters))

	assert.Equal(t, []string{"extractStep", "saveRawFileStep"}, calls, "失敗後のステップは実行されないこと")
	assert.Equal(t, core.BatchStatusFailed, je.Status)
	require.NotEmpty(t, je.Failures)
	assert.ErrorIs(t, je.Failures[0], boom)
	assert.Equal(t, "saveRawFileStep", je.CurrentStepName)
}

func TestFlowJob_ErrorWithoutTransitionFailsJob(t *testing.T) {
	var calls []string
	step := &scriptedStep{name: "only", calls: &calls, err: errors.New("x")}
	flow := core.NewFlowDefinition("only")
	flow.AddElement("only", step)

	je := core.NewJobExecution("instance", "j", core.NewJobParameters())
	je.MarkAsStarted()
	require.NoError(t, NewFlowJob("j", "j", flow, memory.NewJobRepository(), nil).Run(context.Background(), je, je.Parameters))
	assert.Equal(t, core.BatchStatusFailed, je.Status)
}

func TestFlowJob_CancelledContextStopsJob(t *testing.T) {
	var calls []string
	steps := []*scriptedStep{{name: "extractStep", calls: &calls}}
	job := NewFlowJob("j", "j", buildLinearFlow(steps...), memory.NewJobRepository(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	je := core.NewJobExecution("instance", "j", core.NewJobParameters())
	je.MarkAsStarted()
	err := job.Run(ctx, je, je.Parameters)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
	assert.Equal(t, core.BatchStatusStopped, je.Status)
}

func TestFlowJob_ValidateParameters(t *testing.T) {
	var calls []string
	job := NewFlowJob("j", "j", buildLinearFlow(&scriptedStep{name: "a", calls: &calls}), memory.NewJobRepository(), nil)
	assert.NoError(t, job.ValidateParameters(core.NewJobParameters()))

	broken := NewFlowJob("j", "j", core.NewFlowDefinition("missing"), memory.NewJobRepository(), nil)
	assert.Error(t, broken.ValidateParameters(core.NewJobParameters()))
}
