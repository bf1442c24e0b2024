package memory

import (
	"context"
	"sort"
	"sync"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
)

// JobRepository はプロセス内のメモリに実行履歴を保持する JobRepository の実装です。
// job_repository.type が未指定または "memory" の場合に使用されます。
type JobRepository struct {
	mu             sync.RWMutex
	instances      map[string]*core.JobInstance
	jobExecutions  map[string]*core.JobExecution
	stepExecutions map[string]*core.StepExecution
}

var _ job.JobRepository = (*JobRepository)(nil)

// NewJobRepository は新しいインメモリ JobRepository を作成します。
func NewJobRepository() *JobRepository {
	return &JobRepository{
		instances:      make(map[string]*core.JobInstance),
		jobExecutions:  make(map[string]*core.JobExecution),
		stepExecutions: make(map[string]*core.StepExecution),
	}
}

func (r *JobRepository) SaveJobInstance(_ context.Context, ji *core.JobInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[ji.ID]; ok {
		return exception.NewBatchErrorf("job_repository", "JobInstance (ID: %s) は既に存在します", ji.ID)
	}
	r.instances[ji.ID] = ji
	return nil
}

func (r *JobRepository) FindJobInstanceByJobNameAndParameters(_ context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error) {
	hash := params.Hash()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ji := range r.instances {
		if ji.JobName == jobName && ji.ParametersHash == hash {
			return ji, nil
		}
	}
	return nil, nil
}

func (r *JobRepository) FindJobInstanceByID(_ context.Context, instanceID string) (*core.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ji, ok := r.instances[instanceID]
	if !ok {
		return nil, exception.NewBatchErrorf("job_repository", "JobInstance (ID: %s) が見つかりません", instanceID)
	}
	return ji, nil
}

func (r *JobRepository) SaveJobExecution(_ context.Context, je *core.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobExecutions[je.ID]; ok {
		return exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) は既に存在します", je.ID)
	}
	r.jobExecutions[je.ID] = je
	return nil
}

func (r *JobRepository) UpdateJobExecution(_ context.Context, je *core.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobExecutions[je.ID]; !ok {
		return exception.NewBatchErrorf("job_repository", "更新対象の JobExecution (ID: %s) が見つかりません", je.ID)
	}
	r.jobExecutions[je.ID] = je
	return nil
}

func (r *JobRepository) FindJobExecutionByID(_ context.Context, executionID string) (*core.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	je, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) が見つかりません", executionID)
	}
	return je, nil
}

func (r *JobRepository) FindJobExecutionsByJobInstanceID(_ context.Context, jobInstanceID string) ([]*core.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobInstanceID == jobInstanceID {
			out = append(out, je)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreateTime.Before(out[j].CreateTime) })
	return out, nil
}

func (r *JobRepository) SaveStepExecution(_ context.Context, se *core.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stepExecutions[se.ID]; ok {
		return exception.NewBatchErrorf("job_repository", "StepExecution (ID: %s) は既に存在します", se.ID)
	}
	r.stepExecutions[se.ID] = se
	return nil
}

func (r *JobRepository) UpdateStepExecution(_ context.Context, se *core.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stepExecutions[se.ID]; !ok {
		return exception.NewBatchErrorf("job_repository", "更新対象の StepExecution (ID: %s) が見つかりません", se.ID)
	}
	r.stepExecutions[se.ID] = se
	return nil
}

func (r *JobRepository) FindStepExecutionsByJobExecutionID(_ context.Context, jobExecutionID string) ([]*core.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.StepExecution
	for _, se := range r.stepExecutions {
		if se.JobExecution != nil && se.JobExecution.ID == jobExecutionID {
			out = append(out, se)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.Before(out[j].LastUpdated) })
	return out, nil
}

// Close は何もしません。
func (r *JobRepository) Close() error { return nil }
