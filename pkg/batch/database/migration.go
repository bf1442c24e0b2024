package database

import (
	"database/sql"
	"embed"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/snowflake"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

//go:embed migrations
var migrationFS embed.FS

// DefaultMigrationsTable はバッチフレームワークのスキーマバージョンを管理するテーブル名です。
const DefaultMigrationsTable = "batch_schema_migrations"

// RunMigrations は JobRepository 用のテーブルを作成するマイグレーションを実行します。
// マイグレーションファイルはバイナリに埋め込まれており、dbType ごとのディレクトリから読み込まれます。
func RunMigrations(db *sql.DB, dbType, migrationsTable string) error {
	dbType = strings.ToLower(dbType)
	if migrationsTable == "" {
		migrationsTable = DefaultMigrationsTable
	}
	logger.Infof("データベースマイグレーションを開始します。DBタイプ: %s, テーブル: %s", dbType, migrationsTable)

	driver, err := newMigrateDriver(db, dbType, migrationsTable)
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションドライバの作成に失敗しました", err)
	}

	src, err := iofs.New(migrationFS, "migrations/"+dbType)
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションソースの読み込みに失敗しました", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbType, driver)
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションインスタンスの作成に失敗しました", err)
	}

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("マイグレーションは不要です。データベースは最新の状態です。")
			return nil
		}
		return exception.NewBatchError("migration", "マイグレーションの実行に失敗しました", err)
	}

	logger.Infof("データベースマイグレーションが正常に完了しました。")
	return nil
}

func newMigrateDriver(db *sql.DB, dbType, migrationsTable string) (migratedb.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	case "mysql":
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: migrationsTable})
	case "snowflake":
		return snowflake.WithInstance(db, &snowflake.Config{MigrationsTable: migrationsTable})
	default:
		return nil, errors.Errorf("unsupported database type for migration: %s", dbType)
	}
}
