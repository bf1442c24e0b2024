package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

var validate = validator.New()

// ConfigLoader は Config をロードするインターフェースです。
type ConfigLoader interface {
	Load() (*Config, error)
}

// BytesConfigLoader はバイトスライスから設定をロードする ConfigLoader の実装です。
type BytesConfigLoader struct {
	data []byte
}

// NewBytesConfigLoader は新しい BytesConfigLoader のインスタンスを作成します。
func NewBytesConfigLoader(data []byte) *BytesConfigLoader {
	return &BytesConfigLoader{data: data}
}

// Load は埋め込まれた YAML をデフォルト値の上に読み込み、環境変数で上書きしてから検証します。
func (l *BytesConfigLoader) Load() (*Config, error) {
	cfg := NewConfig()

	if len(l.data) > 0 {
		if err := yaml.Unmarshal(l.data, cfg); err != nil {
			return nil, exception.NewBatchError("config", "YAML設定のパースに失敗しました", err)
		}
	}
	cfg.EmbeddedConfig = l.data

	loadEnvVars(cfg)

	if err := Validate(cfg); err != nil {
		return nil, exception.NewBatchError("config", "設定値の検証に失敗しました", err)
	}
	return cfg, nil
}

// Validate は設定値を検証します。
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// loadEnvVars は環境変数で個別の設定値を上書きします。
// キーは .env でもそのまま使える小文字の名前 (api_key, db_uri など) です。
func loadEnvVars(cfg *Config) {
	setString("api_url", &cfg.WeatherAPI.URL)
	setString("api_key", &cfg.WeatherAPI.Key)
	setInt("api_timeout_seconds", &cfg.WeatherAPI.TimeoutSeconds)

	setString("raw_data", &cfg.Output.RawDataPath)

	setString("db_uri", &cfg.DocumentStore.URIString)
	setString("db_host", &cfg.DocumentStore.Host)
	setInt("db_port", &cfg.DocumentStore.Port)
	setString("db_name", &cfg.DocumentStore.Database)
	setString("raw_collection", &cfg.DocumentStore.RawCollection)
	setString("clean_collection", &cfg.DocumentStore.CleanCollection)

	setString("job_repository_type", &cfg.JobRepository.Type)
	setString("job_repository_dsn", &cfg.JobRepository.DSN)

	setString("metrics_pushgateway_url", &cfg.Metrics.PushgatewayURL)

	setString("job_name", &cfg.Batch.JobName)
	setString("log_level", &cfg.System.Logging.Level)
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("環境変数 %s の値 '%s' が無効です。デフォルト値または設定ファイルの値を使用します。", key, v)
		return
	}
	*dst = n
}
