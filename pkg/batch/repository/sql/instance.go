package sql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tigerroll/weather_etl/pkg/batch/database"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// SQLJobInstanceRepository は JobInstance インターフェースの SQL データベース実装です。
type SQLJobInstanceRepository struct {
	dbConnection database.DBConnection
}

// NewSQLJobInstanceRepository は新しい SQLJobInstanceRepository のインスタンスを作成します。
func NewSQLJobInstanceRepository(dbConn database.DBConnection) *SQLJobInstanceRepository {
	return &SQLJobInstanceRepository{dbConnection: dbConn}
}

// SaveJobInstance は新しい JobInstance をデータベースに保存します。
func (r *SQLJobInstanceRepository) SaveJobInstance(ctx context.Context, ji *core.JobInstance) error {
	paramsJSON, err := marshalParameters(ji.Parameters)
	if err != nil {
		return exception.NewBatchError("job_repository", "JobInstance の JobParameters のシリアライズに失敗しました", err)
	}

	query := `INSERT INTO batch_job_instance (id, job_name, job_parameters, parameters_hash, create_time) VALUES (?, ?, ?, ?, ?)`
	if _, err = r.dbConnection.ExecContext(ctx, query,
		ji.ID, ji.JobName, paramsJSON, ji.ParametersHash, ji.CreateTime.UTC(),
	); err != nil {
		return exception.NewBatchErrorf("job_repository", "JobInstance (ID: %s) の保存に失敗しました", ji.ID, err)
	}

	logger.Debugf("JobInstance (ID: %s, JobName: %s) を保存しました。", ji.ID, ji.JobName)
	return nil
}

// FindJobInstanceByJobNameAndParameters はジョブ名とパラメータのハッシュで JobInstance を検索します。
func (r *SQLJobInstanceRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error) {
	query := `SELECT id, job_name, job_parameters, parameters_hash, create_time FROM batch_job_instance WHERE job_name = ? AND parameters_hash = ?`
	ji, err := r.scan(r.dbConnection.QueryRowContext(ctx, query, jobName, params.Hash()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, exception.NewBatchErrorf("job_repository", "JobInstance (JobName: %s) の検索に失敗しました", jobName, err)
	}
	return ji, nil
}

// FindJobInstanceByID は指定された ID の JobInstance を取得します。
func (r *SQLJobInstanceRepository) FindJobInstanceByID(ctx context.Context, instanceID string) (*core.JobInstance, error) {
	query := `SELECT id, job_name, job_parameters, parameters_hash, create_time FROM batch_job_instance WHERE id = ?`
	ji, err := r.scan(r.dbConnection.QueryRowContext(ctx, query, instanceID))
	if err != nil {
		return nil, exception.NewBatchErrorf("job_repository", "JobInstance (ID: %s) の取得に失敗しました", instanceID, err)
	}
	return ji, nil
}

func (r *SQLJobInstanceRepository) scan(row *sql.Row) (*core.JobInstance, error) {
	ji := &core.JobInstance{}
	var params sql.NullString
	if err := row.Scan(&ji.ID, &ji.JobName, &params, &ji.ParametersHash, &ji.CreateTime); err != nil {
		return nil, err
	}
	p, err := unmarshalParameters(params)
	if err != nil {
		logger.Warnf("JobInstance (ID: %s) の JobParameters のデコードに失敗しました: %v", ji.ID, err)
	}
	ji.Parameters = p
	return ji, nil
}
