package sql

import (
	"context"
	"database/sql"

	"github.com/tigerroll/weather_etl/pkg/batch/database"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// SQLStepExecutionRepository は StepExecution インターフェースの SQL データベース実装です。
type SQLStepExecutionRepository struct {
	dbConnection database.DBConnection
}

// NewSQLStepExecutionRepository は新しい SQLStepExecutionRepository のインスタンスを作成します。
func NewSQLStepExecutionRepository(dbConn database.DBConnection) *SQLStepExecutionRepository {
	return &SQLStepExecutionRepository{dbConnection: dbConn}
}

// SaveStepExecution は新しい StepExecution をデータベースに保存します。
func (r *SQLStepExecutionRepository) SaveStepExecution(ctx context.Context, se *core.StepExecution) error {
	if se.JobExecution == nil {
		return exception.NewBatchErrorf("job_repository", "StepExecution (ID: %s) に JobExecution が設定されていません", se.ID)
	}
	query := `INSERT INTO batch_step_execution (id, job_execution_id, step_name, status, exit_status, start_time, end_time, read_count, write_count, filter_count, last_updated, failures) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.dbConnection.ExecContext(ctx, query,
		se.ID, se.JobExecution.ID, se.StepName, string(se.Status), string(se.ExitStatus),
		nullTime(se.StartTime), nullTime(se.EndTime), se.ReadCount, se.WriteCount, se.FilterCount,
		se.LastUpdated.UTC(), joinFailures(se.Failures),
	); err != nil {
		return exception.NewBatchErrorf("job_repository", "StepExecution (ID: %s) の保存に失敗しました", se.ID, err)
	}
	logger.Debugf("StepExecution (ID: %s, StepName: %s) を保存しました。", se.ID, se.StepName)
	return nil
}

// UpdateStepExecution は既存の StepExecution の状態を更新します。
func (r *SQLStepExecutionRepository) UpdateStepExecution(ctx context.Context, se *core.StepExecution) error {
	query := `UPDATE batch_step_execution SET status = ?, exit_status = ?, start_time = ?, end_time = ?, read_count = ?, write_count = ?, filter_count = ?, last_updated = ?, failures = ? WHERE id = ?`
	res, err := r.dbConnection.ExecContext(ctx, query,
		string(se.Status), string(se.ExitStatus), nullTime(se.StartTime), nullTime(se.EndTime),
		se.ReadCount, se.WriteCount, se.FilterCount, se.LastUpdated.UTC(), joinFailures(se.Failures), se.ID,
	)
	if err != nil {
		return exception.NewBatchErrorf("job_repository", "StepExecution (ID: %s) の更新に失敗しました", se.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exception.NewBatchErrorf("job_repository", "更新対象の StepExecution (ID: %s) が見つかりません", se.ID)
	}
	logger.Debugf("StepExecution (ID: %s) を更新しました。Status: %s", se.ID, se.Status)
	return nil
}

// FindStepExecutionsByJobExecutionID は JobExecution に属する StepExecution を開始順に返します。
// 返される StepExecution の JobExecution フィールドは呼び出し側で設定します。
func (r *SQLStepExecutionRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error) {
	query := `SELECT id, step_name, status, exit_status, start_time, end_time, read_count, write_count, filter_count, last_updated, failures FROM batch_step_execution WHERE job_execution_id = ? ORDER BY start_time`
	rows, err := r.dbConnection.QueryContext(ctx, query, jobExecutionID)
	if err != nil {
		return nil, exception.NewBatchErrorf("job_repository", "JobExecution (ID: %s) の StepExecution 検索に失敗しました", jobExecutionID, err)
	}
	defer rows.Close()

	var out []*core.StepExecution
	for rows.Next() {
		se := &core.StepExecution{ExecutionContext: core.NewExecutionContext()}
		var status, exitStatus string
		var start, end sql.NullTime
		var failures sql.NullString
		if err := rows.Scan(&se.ID, &se.StepName, &status, &exitStatus, &start, &end,
			&se.ReadCount, &se.WriteCount, &se.FilterCount, &se.LastUpdated, &failures); err != nil {
			return nil, exception.NewBatchError("job_repository", "StepExecution の読み込みに失敗しました", err)
		}
		se.Status = core.JobStatus(status)
		se.ExitStatus = core.ExitStatus(exitStatus)
		se.StartTime = fromNullTime(start)
		se.EndTime = fromNullTime(end)
		se.Failures = splitFailures(failures)
		out = append(out, se)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError("job_repository", "StepExecution の読み込みに失敗しました", err)
	}
	return out, nil
}
