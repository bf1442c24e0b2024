package weatherreader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"

	weather_config "github.com/tigerroll/weather_etl/example/weather/config"
	weather_entity "github.com/tigerroll/weather_etl/example/weather/domain/entity"
)

const module = "extract"

// エラーログに含めるレスポンスボディの最大バイト数
const maxLoggedBody = 512

// WeatherReader は天気APIから対象都市の現在の天気データを1回だけ取得する Reader です。
// リトライは行いません。
type WeatherReader struct {
	config *weather_config.WeatherReaderConfig
	client *http.Client
}

// NewWeatherReader は新しい WeatherReader を作成します。client が nil の場合は設定のタイムアウトを持つクライアントを使用します。
func NewWeatherReader(cfg *weather_config.WeatherReaderConfig, client *http.Client) *WeatherReader {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &WeatherReader{config: cfg, client: client}
}

// requestURL は GET {api_url}?city=Lagos&key={api_key} を組み立てます。
// 既存のクエリパラメータは保持します。
func (r *WeatherReader) requestURL() (string, error) {
	u, err := url.Parse(r.config.APIEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("city", weather_config.City)
	q.Set("key", r.config.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redactedURL はログ出力用に API キーを含まない URL を返します。
func (r *WeatherReader) redactedURL() string {
	u, err := url.Parse(r.config.APIEndpoint)
	if err != nil {
		return r.config.APIEndpoint
	}
	q := u.Query()
	q.Set("city", weather_config.City)
	u.RawQuery = q.Encode()
	return u.String()
}

// Read は天気APIを呼び出し、デコードした RawPayload を返します。
// ネットワークエラー、タイムアウト、2xx 以外のステータス、ボディの読み込み・パース失敗はいずれも BatchError になります。
func (r *WeatherReader) Read(ctx context.Context) (*weather_entity.RawPayload, error) {
	reqURL, err := r.requestURL()
	if err != nil {
		logger.Errorf("天気APIのURLが不正です: %v", err)
		return nil, exception.NewBatchError(module, "天気APIのURLが不正です", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, exception.NewBatchError(module, "HTTPリクエストの作成に失敗しました", err)
	}

	logger.Infof("天気APIからデータを取得するよ。URL: %s", r.redactedURL())
	resp, err := r.client.Do(req)
	if err != nil {
		logger.Errorf("天気APIへのリクエストに失敗しました (URL: %s): %v", r.redactedURL(), err)
		return nil, exception.NewBatchError(module, "天気API呼び出しエラー", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Errorf("天気APIのレスポンスボディの読み込みに失敗しました (ステータス: %d): %v", resp.StatusCode, err)
		return nil, exception.NewBatchError(module, "レスポンスボディの読み込みに失敗しました", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Errorf("天気APIからエラーレスポンスが返されました。ステータス: %d, ボディ: %s", resp.StatusCode, truncate(body))
		return nil, exception.NewBatchErrorf(module, "天気APIからエラーレスポンスが返されました: ステータスコード %d", resp.StatusCode)
	}

	payload, err := weather_entity.DecodeRawPayload(body)
	if err != nil {
		logger.Errorf("天気APIのレスポンスのデコードに失敗しました: %v, ボディ: %s", err, truncate(body))
		return nil, exception.NewBatchError(module, "APIレスポンスのデコードに失敗しました", err)
	}

	logger.Infof("天気APIからデータを取得したよ。ボディ: %d バイト", len(body))
	return payload, nil
}

func truncate(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	return fmt.Sprintf("%s...(%d bytes)", body[:maxLoggedBody], len(body))
}
