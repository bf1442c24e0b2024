package connector

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerroll/weather_etl/pkg/batch/config"
	"github.com/tigerroll/weather_etl/pkg/batch/database"
	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// DBConnector は特定のデータベースタイプへの接続を確立するためのインターフェースです。
type DBConnector interface {
	Connect(ctx context.Context, cfg config.JobRepositoryConfig) (*sql.DB, error)
}

// connectors は登録された DBConnector の実装を保持するマップです。
var connectors = make(map[string]DBConnector)

// RegisterConnector は指定されたタイプ名で DBConnector を登録します。
func RegisterConnector(dbType string, connector DBConnector) {
	connectors[strings.ToLower(dbType)] = connector
}

// GetSQLDB は設定に基づいて適切なコネクタを選択し、データベース接続を確立します。
func GetSQLDB(ctx context.Context, cfg config.JobRepositoryConfig) (*sql.DB, error) {
	c, ok := connectors[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, exception.NewBatchErrorf("database", "未対応のデータベースタイプ: %s", cfg.Type)
	}
	return c.Connect(ctx, cfg)
}

// NewDBConnectionFromConfig は設定に基づいてデータベース接続を確立し、DBConnection として返します。
func NewDBConnectionFromConfig(ctx context.Context, cfg config.JobRepositoryConfig) (database.DBConnection, error) {
	rawDB, err := GetSQLDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return database.NewSQLDBAdapter(rawDB, cfg.Type), nil
}

// openWithPool はドライバ名で接続を開き、コネクションプール設定を適用してから疎通確認を行います。
func openWithPool(ctx context.Context, driverName string, cfg config.JobRepositoryConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.ConnectionString())
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driverName)
	}

	pool := cfg.ConnectionPool
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping %s", driverName)
	}

	logger.Debugf("%s に正常に接続しました。MaxOpenConns: %d, MaxIdleConns: %d, ConnMaxLifetime: %d秒",
		driverName, pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetimeSeconds)
	return db, nil
}
