package connector

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql" // MySQL ドライバ

	"github.com/tigerroll/weather_etl/pkg/batch/config"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
)

// mysqlConnector は MySQL データベースへの接続を確立する DBConnector の実装です。
type mysqlConnector struct{}

// Connect は MySQL データベースへの接続を確立し、*sql.DB を返します。
func (c *mysqlConnector) Connect(ctx context.Context, cfg config.JobRepositoryConfig) (*sql.DB, error) {
	db, err := openWithPool(ctx, "mysql", cfg)
	if err != nil {
		return nil, exception.NewBatchError("database", "MySQL への接続に失敗しました", err)
	}
	return db, nil
}

func init() {
	RegisterConnector("mysql", &mysqlConnector{})
}
