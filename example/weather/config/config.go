package weather_config

import (
	"time"

	config "github.com/tigerroll/weather_etl/pkg/batch/config"
)

// City は天気データを取得する対象の都市です。
const City = "Lagos"

// WeatherReaderConfig は WeatherReader に必要な設定のみを持つ構造体です。
type WeatherReaderConfig struct {
	APIEndpoint string
	APIKey      string
	Timeout     time.Duration
}

// RawFileWriterConfig は RawFileWriter に必要な設定のみを持つ構造体です。
type RawFileWriterConfig struct {
	Path string
}

// DocumentWriterConfig はドキュメントストアへ書き込む Writer の設定です。
type DocumentWriterConfig struct {
	Store      config.DocumentStoreConfig
	Collection string
}

// NewWeatherReaderConfig はアプリケーション設定から WeatherReaderConfig を作成します。
// JSL の properties に apiEndpoint があれば設定値を上書きします。
func NewWeatherReaderConfig(cfg *config.Config, properties map[string]string) *WeatherReaderConfig {
	c := &WeatherReaderConfig{
		APIEndpoint: cfg.WeatherAPI.URL,
		APIKey:      cfg.WeatherAPI.Key,
		Timeout:     cfg.WeatherAPI.Timeout(),
	}
	if endpoint, ok := properties["apiEndpoint"]; ok && endpoint != "" {
		c.APIEndpoint = endpoint
	}
	return c
}

// NewRawFileWriterConfig はアプリケーション設定から RawFileWriterConfig を作成します。
func NewRawFileWriterConfig(cfg *config.Config) *RawFileWriterConfig {
	return &RawFileWriterConfig{Path: cfg.Output.RawDataPath}
}

// NewRawDocumentWriterConfig は生データ用コレクションへの書き込み設定を作成します。
func NewRawDocumentWriterConfig(cfg *config.Config) *DocumentWriterConfig {
	return &DocumentWriterConfig{Store: cfg.DocumentStore, Collection: cfg.DocumentStore.RawCollection}
}

// NewCleanDocumentWriterConfig はクリーンデータ用コレクションへの書き込み設定を作成します。
func NewCleanDocumentWriterConfig(cfg *config.Config) *DocumentWriterConfig {
	return &DocumentWriterConfig{Store: cfg.DocumentStore, Collection: cfg.DocumentStore.CleanCollection}
}
