package sql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/tigerroll/weather_etl/pkg/batch/database"
	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// SQLJobRepository は JobRepository インターフェースの SQL データベース実装です。
// JobInstance / JobExecution / StepExecution ごとのリポジトリを埋め込み、委譲します。
// クエリは "?" プレースホルダで記述し、database.DBConnection がデータベースに合わせて変換します。
type SQLJobRepository struct {
	dbConnection database.DBConnection

	*SQLJobInstanceRepository
	*SQLJobExecutionRepository
	*SQLStepExecutionRepository
}

var _ job.JobRepository = (*SQLJobRepository)(nil)

// NewSQLJobRepository は新しい SQLJobRepository のインスタンスを作成します。
func NewSQLJobRepository(dbConn database.DBConnection) *SQLJobRepository {
	stepRepo := NewSQLStepExecutionRepository(dbConn)
	return &SQLJobRepository{
		dbConnection:               dbConn,
		SQLJobInstanceRepository:   NewSQLJobInstanceRepository(dbConn),
		SQLJobExecutionRepository:  NewSQLJobExecutionRepository(dbConn, stepRepo),
		SQLStepExecutionRepository: stepRepo,
	}
}

// Close はデータベース接続を閉じます。
func (r *SQLJobRepository) Close() error {
	if r.dbConnection == nil {
		return nil
	}
	if err := r.dbConnection.Close(); err != nil {
		return exception.NewBatchError("job_repository", "データベース接続を閉じるのに失敗しました", err)
	}
	logger.Debugf("Job Repository のデータベース接続を閉じました。")
	return nil
}

// nullTime はゼロ値の時刻を NULL として扱います。
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

// joinFailures はエラーのリストを改行区切りの文字列に変換します。
func joinFailures(failures []error) sql.NullString {
	if len(failures) == 0 {
		return sql.NullString{}
	}
	msgs := make([]string, 0, len(failures))
	for _, f := range failures {
		msgs = append(msgs, strings.ReplaceAll(f.Error(), "\n", " "))
	}
	return sql.NullString{String: strings.Join(msgs, "\n"), Valid: true}
}

// splitFailures は joinFailures で保存した文字列をエラーのリストに戻します。
func splitFailures(s sql.NullString) []error {
	out := make([]error, 0)
	if !s.Valid || s.String == "" {
		return out
	}
	for _, msg := range strings.Split(s.String, "\n") {
		out = append(out, errors.New(msg))
	}
	return out
}

func marshalParameters(params core.JobParameters) (string, error) {
	if params.Params == nil {
		return "{}", nil
	}
	b, err := json.Marshal(params.Params)
	if err != nil {
		return "", pkgerrors.Wrap(err, "marshal job parameters")
	}
	return string(b), nil
}

func unmarshalParameters(s sql.NullString) (core.JobParameters, error) {
	params := core.NewJobParameters()
	if !s.Valid || s.String == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(s.String), &params.Params); err != nil {
		return params, pkgerrors.Wrap(err, "unmarshal job parameters")
	}
	return params, nil
}
