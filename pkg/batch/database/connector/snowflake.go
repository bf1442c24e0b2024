package connector

import (
	"context"
	"database/sql"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake ドライバ

	"github.com/tigerroll/weather_etl/pkg/batch/config"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
)

// snowflakeConnector は Snowflake への接続を確立する DBConnector の実装です。
// 接続文字列は job_repository.dsn (user:password@account/database/schema?warehouse=...) で指定します。
type snowflakeConnector struct{}

// Connect は Snowflake への接続を確立し、*sql.DB を返します。
func (c *snowflakeConnector) Connect(ctx context.Context, cfg config.JobRepositoryConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, exception.NewBatchError("database", "Snowflake の接続には job_repository.dsn の指定が必要です", nil)
	}
	db, err := openWithPool(ctx, "snowflake", cfg)
	if err != nil {
		return nil, exception.NewBatchError("database", "Snowflake への接続に失敗しました", err)
	}
	return db, nil
}

func init() {
	RegisterConnector("snowflake", &snowflakeConnector{})
}
