package repository

import (
	"context"

	"github.com/tigerroll/weather_etl/pkg/batch/config"
	"github.com/tigerroll/weather_etl/pkg/batch/database"
	"github.com/tigerroll/weather_etl/pkg/batch/database/connector"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/job"
	"github.com/tigerroll/weather_etl/pkg/batch/repository/memory"
	sqlrepo "github.com/tigerroll/weather_etl/pkg/batch/repository/sql"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// NewJobRepository は設定に応じた JobRepository を作成します。
// SQL データベースが指定された場合は接続を確立し、マイグレーションを実行してから SQLJobRepository を返します。
func NewJobRepository(ctx context.Context, cfg config.JobRepositoryConfig) (job.JobRepository, error) {
	module := "repository_factory"
	if !cfg.IsSQL() {
		logger.Debugf("インメモリの JobRepository を使用します。")
		return memory.NewJobRepository(), nil
	}

	logger.Debugf("JobRepository の生成を開始します (Type: %s).", cfg.Type)
	dbConn, err := connector.NewDBConnectionFromConfig(ctx, cfg)
	if err != nil {
		logger.Errorf("JobRepository 用のデータベース接続確立に失敗しました (Type: %s): %v", cfg.Type, err)
		return nil, exception.NewBatchErrorf(module, "JobRepository 用のデータベース接続確立に失敗しました (Type: %s)", cfg.Type, err)
	}

	if err := database.RunMigrations(dbConn.DB(), cfg.Type, cfg.MigrationsTable); err != nil {
		dbConn.Close()
		return nil, exception.NewBatchError(module, "JobRepository のマイグレーションに失敗しました", err)
	}

	logger.Debugf("SQLJobRepository を生成しました。")
	return sqlrepo.NewSQLJobRepository(dbConn), nil
}
