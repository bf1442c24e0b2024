package sql

import (
	"context"
	"database/sql"

	"github.com/tigerroll/weather_etl/pkg/batch/database"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

const jobExecutionColumns = `id, job_instance_id, job_name, status, exit_status, start_time, end_time, create_time, last_updated, current_step_name, failures`

// SQLJobExecutionRepository は JobExecution インターフェースの SQL データベース実装です。
type SQLJobExecutionRepository struct {
	dbConnection database.DBConnection
	steps        *SQLStepExecutionRepository
}

// NewSQLJobExecutionRepository は新しい SQLJobExecutionRepository のインスタンスを作成します。
func NewSQLJobExecutionRepository(dbConn database.DBConnection, steps *SQLStepExecutionRepository) *SQLJobExecutionRepository {
	return &SQLJobExecutionRepository{dbConnection: dbConn, steps: steps}
}

// SaveJobExecution は新しい JobExecution をデータベースに保存します。
func (r *SQLJobExecutionRepository) SaveJobExecution(ctx context.Context, je *core.JobExecution) error {
	query := `INSERT INTO batch_job_execution (` + jobExecutionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.dbConnection.ExecContext(ctx, query,
		je.ID, je.JobInstanceID, je.JobName, string(je.Status), string(je.ExitStatus),
		nullTime(je.StartTime), nullTime(je.EndTime), je.CreateTime.UTC(), je.LastUpdated.UTC(),
		je.CurrentStepName, joinFailures(je.Failures),
	); err != nil {
		return exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) の保存に失敗しました", je.ID, err)
	}
	logger.Debugf("JobExecution (ID: %s) を保存しました。", je.ID)
	return nil
}

// UpdateJobExecution は既存の JobExecution の状態を更新します。
func (r *SQLJobExecutionRepository) UpdateJobExecution(ctx context.Context, je *core.JobExecution) error {
	query := `UPDATE batch_job_execution SET status = ?, exit_status = ?, start_time = ?, end_time = ?, last_updated = ?, current_step_name = ?, failures = ? WHERE id = ?`
	res, err := r.dbConnection.ExecContext(ctx, query,
		string(je.Status), string(je.ExitStatus), nullTime(je.StartTime), nullTime(je.EndTime),
		je.LastUpdated.UTC(), je.CurrentStepName, joinFailures(je.Failures), je.ID,
	)
	if err != nil {
		return exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) の更新に失敗しました", je.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exception.NewBatchErrorf("job_repository", "更新対象の JobExecution (ID: %s) が見つかりません", je.ID)
	}
	logger.Debugf("JobExecution (ID: %s) を更新しました。Status: %s", je.ID, je.Status)
	return nil
}

// FindJobExecutionByID は指定された ID の JobExecution を、関連する StepExecution とともに取得します。
func (r *SQLJobExecutionRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error) {
	query := `SELECT ` + jobExecutionColumns + ` FROM batch_job_execution WHERE id = ?`
	rows, err := r.dbConnection.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) の取得に失敗しました", executionID, err)
	}
	execs, err := r.scanAll(ctx, rows)
	if err != nil {
		return nil, exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) の読み込みに失敗しました", executionID, err)
	}
	if len(execs) == 0 {
		return nil, exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) が見つかりません", executionID)
	}
	return execs[0], nil
}

// FindJobExecutionsByJobInstanceID は JobInstance に属する JobExecution を作成順に返します。
func (r *SQLJobExecutionRepository) FindJobExecutionsByJobInstanceID(ctx context.Context, jobInstanceID string) ([]*core.JobExecution, error) {
	query := `SELECT ` + jobExecutionColumns + ` FROM batch_job_execution WHERE job_instance_id = ? ORDER BY create_time`
	rows, err := r.dbConnection.QueryContext(ctx, query, jobInstanceID)
	if err != nil {
		return nil, exception.NewBatchErrorf("job_repository", "JobInstance (ID: %s) の JobExecution 検索に失敗しました", jobInstanceID, err)
	}
	execs, err := r.scanAll(ctx, rows)
	if err != nil {
		return nil, exception.NewBatchErrorf("job_repository", "JobInstance (ID: %s) の JobExecution 読み込みに失敗しました", jobInstanceID, err)
	}
	return execs, nil
}

func (r *SQLJobExecutionRepository) scanAll(ctx context.Context, rows *sql.Rows) ([]*core.JobExecution, error) {
	defer rows.Close()

	var out []*core.JobExecution
	for rows.Next() {
		je := &core.JobExecution{
			Parameters:       core.NewJobParameters(),
			ExecutionContext: core.NewExecutionContext(),
		}
		var status, exitStatus string
		var start, end sql.NullTime
		var currentStep, failures sql.NullString
		if err := rows.Scan(&je.ID, &je.JobInstanceID, &je.JobName, &status, &exitStatus,
			&start, &end, &je.CreateTime, &je.LastUpdated, &currentStep, &failures); err != nil {
			return nil, err
		}
		je.Status = core.JobStatus(status)
		je.ExitStatus = core.ExitStatus(exitStatus)
		je.StartTime = fromNullTime(start)
		je.EndTime = fromNullTime(end)
		je.CurrentStepName = currentStep.String
		je.Failures = splitFailures(failures)
		out = append(out, je)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, je := range out {
		steps, err := r.steps.FindStepExecutionsByJobExecutionID(ctx, je.ID)
		if err != nil {
			return nil, err
		}
		for _, se := range steps {
			se.JobExecution = je
		}
		je.StepExecutions = steps
	}
	return out, nil
}
