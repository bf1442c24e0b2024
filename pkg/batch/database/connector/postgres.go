package connector

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL ドライバ

	"github.com/tigerroll/weather_etl/pkg/batch/config"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
)

// postgresConnector は PostgreSQL データベースへの接続を確立する DBConnector の実装です。
type postgresConnector struct{}

// Connect は PostgreSQL データベースへの接続を確立し、*sql.DB を返します。
func (c *postgresConnector) Connect(ctx context.Context, cfg config.JobRepositoryConfig) (*sql.DB, error) {
	db, err := openWithPool(ctx, "postgres", cfg)
	if err != nil {
		return nil, exception.NewBatchError("database", "PostgreSQL への接続に失敗しました", err)
	}
	return db, nil
}

func init() {
	RegisterConnector("postgres", &postgresConnector{})
}
