package weatherprocessor

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tigerroll/weather_etl/pkg/batch/util/exception"

	weather_entity "github.com/tigerroll/weather_etl/example/weather/domain/entity"
)

const module = "transform"

// 観測値からそのまま引き継がないキー。weather は3つのフィールドに展開され、
// 残りは派生フィールドまたはクリーンデータ書き込み時に設定されるフィールドです。
var reservedKeys = map[string]struct{}{
	"weather":                      {},
	"city_name":                    {},
	"country_code":                 {},
	"ts_datetime":                  {},
	"weather_icon":                 {},
	"weather_code":                 {},
	"weather_description":          {},
	weather_entity.IngestedAtField: {},
}

// WeatherProcessor は RawPayload の観測値を1件ずつ CleanRecord に変換します。副作用はありません。
//
// フィールドの優先順位:
//  1. ペイロードの city_name / country_code を基準値とする
//  2. 観測値自身の city_name / country_code があれば基準値を置き換える
//  3. weather と派生フィールド名以外の観測値のフィールドは元の順序で引き継ぐ
//  4. ts_datetime と weather_* は常に観測値の同名フィールドより優先される
type WeatherProcessor struct{}

// NewWeatherProcessor は新しい WeatherProcessor を作成します。
func NewWeatherProcessor() *WeatherProcessor {
	return &WeatherProcessor{}
}

// Process は payload の data に含まれる観測値と同数の CleanRecord を返します。
// 必須キーの欠落や型の不一致は、観測値のインデックスとキーを含む BatchError になります。
// data が空の場合も保存するレコードがないため BatchError になります。
func (p *WeatherProcessor) Process(ctx context.Context, payload *weather_entity.RawPayload) ([]weather_entity.CleanRecord, error) {
	if payload.IsEmpty() {
		return nil, exception.NewBatchErrorf(module, "変換対象のペイロードが空です")
	}

	cityName, err := requireString(payload.Document, "city_name", -1)
	if err != nil {
		return nil, err
	}
	countryCode, err := requireString(payload.Document, "country_code", -1)
	if err != nil {
		return nil, err
	}

	rawData, ok := payload.Lookup("data")
	if !ok {
		return nil, exception.NewBatchErrorf(module, "ペイロードにキー 'data' がありません")
	}
	observations, ok := rawData.(bson.A)
	if !ok {
		return nil, exception.NewBatchErrorf(module, "キー 'data' の型が不正です: %T", rawData)
	}
	if len(observations) == 0 {
		return nil, exception.NewBatchErrorf(module, "キー 'data' に観測値がありません")
	}

	records := make([]weather_entity.CleanRecord, 0, len(observations))
	for i, raw := range observations {
		select {
		case <-ctx.Done():
			return nil, exception.NewBatchError(module, "変換処理が中断されました", ctx.Err())
		default:
		}

		obs, ok := raw.(bson.D)
		if !ok {
			return nil, exception.NewBatchErrorf(module, "観測値[%d] がオブジェクトではありません: %T", i, raw)
		}
		rec, err := toCleanRecord(i, obs, cityName, countryCode)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func toCleanRecord(index int, obs bson.D, cityName, countryCode string) (weather_entity.CleanRecord, error) {
	rec := weather_entity.CleanRecord{CityName: cityName, CountryCode: countryCode}

	if _, ok := weather_entity.Lookup(obs, "city_name"); ok {
		v, err := requireString(obs, "city_name", index)
		if err != nil {
			return rec, err
		}
		rec.CityName = v
	}
	if _, ok := weather_entity.Lookup(obs, "country_code"); ok {
		v, err := requireString(obs, "country_code", index)
		if err != nil {
			return rec, err
		}
		rec.CountryCode = v
	}

	rawTs, ok := weather_entity.Lookup(obs, "ts")
	if !ok {
		return rec, missingKey(index, "ts")
	}
	ts, ok := epochToUTC(rawTs)
	if !ok {
		return rec, wrongType(index, "ts", rawTs)
	}
	rec.TsDatetime = ts

	rawWeather, ok := weather_entity.Lookup(obs, "weather")
	if !ok {
		return rec, missingKey(index, "weather")
	}
	weather, ok := rawWeather.(bson.D)
	if !ok {
		return rec, wrongType(index, "weather", rawWeather)
	}
	if rec.WeatherIcon, ok = lookupString(weather, "icon"); !ok {
		return rec, weatherKeyError(index, weather, "icon")
	}
	if rec.WeatherDescription, ok = lookupString(weather, "description"); !ok {
		return rec, weatherKeyError(index, weather, "description")
	}
	rawCode, ok := weather_entity.Lookup(weather, "code")
	if !ok {
		return rec, missingKey(index, "weather.code")
	}
	if rec.WeatherCode, ok = toInt(rawCode); !ok {
		return rec, wrongType(index, "weather.code", rawCode)
	}

	rec.Fields = make(bson.D, 0, len(obs))
	for _, e := range obs {
		if _, reserved := reservedKeys[e.Key]; reserved {
			continue
		}
		rec.Fields = append(rec.Fields, e)
	}
	return rec, nil
}

// epochToUTC は整数または浮動小数点の Unix 秒を UTC の時刻に変換します。
func epochToUTC(v interface{}) (time.Time, bool) {
	switch n := v.(type) {
	case int32:
		return time.Unix(int64(n), 0).UTC(), true
	case int64:
		return time.Unix(n, 0).UTC(), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	default:
		return time.Time{}, false
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func lookupString(doc bson.D, key string) (string, bool) {
	v, ok := weather_entity.Lookup(doc, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// requireString は文字列のキーを取得します。index が負の場合はペイロード直下のキーとして扱います。
func requireString(doc bson.D, key string, index int) (string, error) {
	v, ok := weather_entity.Lookup(doc, key)
	if !ok {
		if index < 0 {
			return "", exception.NewBatchErrorf(module, "ペイロードにキー '%s' がありません", key)
		}
		return "", missingKey(index, key)
	}
	s, ok := v.(string)
	if !ok {
		if index < 0 {
			return "", exception.NewBatchErrorf(module, "ペイロードのキー '%s' の型が不正です: %T", key, v)
		}
		return "", wrongType(index, key, v)
	}
	return s, nil
}

func weatherKeyError(index int, weather bson.D, key string) error {
	if v, ok := weather_entity.Lookup(weather, key); ok {
		return wrongType(index, "weather."+key, v)
	}
	return missingKey(index, "weather."+key)
}

func missingKey(index int, key string) error {
	return exception.NewBatchErrorf(module, "観測値[%d] にキー '%s' がありません", index, key)
}

func wrongType(index int, key string, v interface{}) error {
	return exception.NewBatchErrorf(module, "観測値[%d] のキー '%s' の型が不正です: %T", index, key, v)
}
