package weather_entity

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// IngestedAtField はドキュメントストアへの書き込み時刻を保持するフィールド名です。
const IngestedAtField = "_ingested_at_"

// RawPayload は天気APIから取得した生のレスポンスです。抽出後は変更されません。
type RawPayload struct {
	// Body はAPIが返したボディのバイト列そのものです。ファイル出力に使用します。
	Body []byte
	// Document は Body をキー順を保持したままデコードしたものです。
	Document bson.D
}

// DecodeRawPayload は JSON オブジェクトのボディを RawPayload にデコードします。
// "$date" のようなキーも拡張JSONとして解釈せず、ただのフィールドとして扱います。
func DecodeRawPayload(body []byte) (*RawPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode weather payload as JSON object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.Errorf("weather payload must be a JSON object, got %v", tok)
	}
	doc, err := decodeObject(dec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode weather payload as JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after weather payload")
	}
	return &RawPayload{Body: body, Document: doc}, nil
}

// decodeObject は '{' を読んだ直後から対応する '}' までを bson.D に変換します。
func decodeObject(dec *json.Decoder) (bson.D, error) {
	doc := bson.D{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.Errorf("unexpected object key %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", key)
		}
		doc = append(doc, bson.E{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeArray(dec *json.Decoder) (bson.A, error) {
	arr := bson.A{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, errors.Wrapf(err, "index %d", len(arr))
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// decodeValue は整数を int64、それ以外の数値を float64 として返します。
func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, errors.Errorf("unexpected delimiter %v", v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		return v.Float64()
	default:
		// string, bool, nil
		return v, nil
	}
}

// IsEmpty はペイロードが存在しないか、キーを一つも持たない場合に true を返します。
func (p *RawPayload) IsEmpty() bool {
	return p == nil || len(p.Document) == 0
}

// Lookup はトップレベルのキーに対応する値を返します。
func (p *RawPayload) Lookup(key string) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	return Lookup(p.Document, key)
}

// WithIngestedAt はペイロードのコピーに _ingested_at_ を追加したドキュメントを返します。
// 元の Document は変更しません。
func (p *RawPayload) WithIngestedAt(at time.Time) bson.D {
	doc := make(bson.D, 0, len(p.Document)+1)
	doc = append(doc, p.Document...)
	return append(doc, bson.E{Key: IngestedAtField, Value: at})
}

// CleanRecord は観測値1件を平坦化したレコードです。
type CleanRecord struct {
	CityName           string
	CountryCode        string
	TsDatetime         time.Time
	Fields             bson.D // weather と派生フィールド以外の観測値のフィールド (元の順序)
	WeatherIcon        string
	WeatherCode        int
	WeatherDescription string
	IngestedAt         time.Time // クリーンデータ書き込み時にのみ設定される
}

// ToDocument はレコードを保存用のドキュメントに変換します。
// フィールド順は city_name, country_code, ts_datetime, 観測値のフィールド, weather_icon,
// weather_code, weather_description, _ingested_at_ です。
func (r CleanRecord) ToDocument() bson.D {
	doc := make(bson.D, 0, len(r.Fields)+7)
	doc = append(doc,
		bson.E{Key: "city_name", Value: r.CityName},
		bson.E{Key: "country_code", Value: r.CountryCode},
		bson.E{Key: "ts_datetime", Value: r.TsDatetime},
	)
	doc = append(doc, r.Fields...)
	doc = append(doc,
		bson.E{Key: "weather_icon", Value: r.WeatherIcon},
		bson.E{Key: "weather_code", Value: r.WeatherCode},
		bson.E{Key: "weather_description", Value: r.WeatherDescription},
	)
	if !r.IngestedAt.IsZero() {
		doc = append(doc, bson.E{Key: IngestedAtField, Value: r.IngestedAt})
	}
	return doc
}

// Lookup は bson.D からキーに対応する値を返します。
func Lookup(doc bson.D, key string) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}
