package config

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddedConfig は main.go から渡される埋め込み設定 (application.yaml) の内容です。
type EmbeddedConfig []byte

// WeatherAPIConfig は天気APIへの接続設定です。
type WeatherAPIConfig struct {
	URL            string `yaml:"url" validate:"required,url"`
	Key            string `yaml:"key" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gt=0"`
}

// Timeout は HTTP リクエストのタイムアウトを返します。
func (c WeatherAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OutputConfig は生データの出力先ファイルの設定です。
type OutputConfig struct {
	RawDataPath string `yaml:"raw_data" validate:"required"`
}

// DocumentStoreConfig はドキュメントストア (MongoDB) の設定です。
// uri が指定されていない場合は host と port から接続URIを組み立てます。
type DocumentStoreConfig struct {
	URIString             string `yaml:"uri"`
	Host                  string `yaml:"host" validate:"required_without=URIString"`
	Port                  int    `yaml:"port" validate:"omitempty,gt=0,lt=65536"`
	Database              string `yaml:"database" validate:"required"`
	RawCollection         string `yaml:"raw_collection" validate:"required"`
	CleanCollection       string `yaml:"clean_collection" validate:"required"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds" validate:"gt=0"`
}

// URI はドキュメントストアへの接続URIを返します。
func (c DocumentStoreConfig) URI() string {
	if c.URIString != "" {
		return c.URIString
	}
	if c.Port > 0 {
		return fmt.Sprintf("mongodb://%s:%d", c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s", c.Host)
}

// ConnectTimeout は接続および疎通確認のタイムアウトを返します。
func (c DocumentStoreConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// ConnectionPoolConfig はデータベースコネクションプールの設定を保持します。
type ConnectionPoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

// JobRepositoryConfig はジョブ実行履歴を保存する JobRepository の設定です。
// type が空または "memory" の場合、実行履歴はプロセス内のみで保持されます。
type JobRepositoryConfig struct {
	Type            string               `yaml:"type" validate:"omitempty,oneof=memory postgres mysql snowflake"`
	DSN             string               `yaml:"dsn"`
	Host            string               `yaml:"host"`
	Port            int                  `yaml:"port"`
	Database        string               `yaml:"database"`
	User            string               `yaml:"user"`
	Password        string               `yaml:"password"`
	Sslmode         string               `yaml:"sslmode"`
	MigrationsTable string               `yaml:"migrations_table"`
	ConnectionPool  ConnectionPoolConfig `yaml:"connection_pool"`
}

// IsSQL は SQL データベースを使用する設定かどうかを返します。
func (c JobRepositoryConfig) IsSQL() bool {
	switch strings.ToLower(c.Type) {
	case "postgres", "mysql", "snowflake":
		return true
	default:
		return false
	}
}

// ConnectionString はドライバに渡す接続文字列を返します。dsn が指定されていればそれを優先します。
func (c JobRepositoryConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch strings.ToLower(c.Type) {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, c.Sslmode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	default:
		return ""
	}
}

// BatchConfig はジョブの実行に関する設定です。
type BatchConfig struct {
	JobName string `yaml:"job_name" validate:"required"`
}

// MetricsConfig はメトリクスの送信先設定です。pushgateway_url が空の場合は送信しません。
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// Config はアプリケーション全体の設定です。起動時に一度だけ構築され、以降は変更されません。
type Config struct {
	WeatherAPI     WeatherAPIConfig    `yaml:"weather_api"`
	Output         OutputConfig        `yaml:"output"`
	DocumentStore  DocumentStoreConfig `yaml:"document_store"`
	JobRepository  JobRepositoryConfig `yaml:"job_repository"`
	Batch          BatchConfig         `yaml:"batch"`
	Metrics        MetricsConfig       `yaml:"metrics"`
	System         SystemConfig        `yaml:"system"`
	EmbeddedConfig EmbeddedConfig      `yaml:"-"`
}

// NewConfig はデフォルト値で初期化された Config を返します。
func NewConfig() *Config {
	return &Config{
		WeatherAPI: WeatherAPIConfig{
			TimeoutSeconds: 10,
		},
		DocumentStore: DocumentStoreConfig{
			Port:                  27017,
			ConnectTimeoutSeconds: 10,
		},
		JobRepository: JobRepositoryConfig{
			Type:            "memory",
			MigrationsTable: "batch_schema_migrations",
		},
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO"},
		},
	}
}
