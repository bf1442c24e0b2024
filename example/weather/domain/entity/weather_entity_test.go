package weather_entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestDecodeRawPayload_PreservesKeyOrder(t *testing.T) {
	p, err := DecodeRawPayload([]byte(`{"z":1,"city_name":"Lagos","a":{"b":2}}`))
	require.NoError(t, err)

	require.Len(t, p.Document, 3)
	assert.Equal(t, "z", p.Document[0].Key)
	assert.Equal(t, "city_name", p.Document[1].Key)
	assert.Equal(t, "a", p.Document[2].Key)

	v, ok := p.Lookup("city_name")
	require.True(t, ok)
	assert.Equal(t, "Lagos", v)
	assert.False(t, p.IsEmpty())
}

func TestDecodeRawPayload_RejectsNonObject(t *testing.T) {
	_, err := DecodeRawPayload([]byte(`[1,2,3]`))
	assert.Error(t, err)

	_, err = DecodeRawPayload([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeRawPayload_KeepsDollarKeysLiteral(t *testing.T) {
	p, err := DecodeRawPayload([]byte(`{"meta":{"$date":"2023-11-14T22:13:20Z","$oid":"abc"},"n":{"$numberLong":"5"}}`))
	require.NoError(t, err)

	meta, ok := p.Lookup("meta")
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "$date", Value: "2023-11-14T22:13:20Z"}, {Key: "$oid", Value: "abc"}}, meta)

	n, ok := p.Lookup("n")
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "$numberLong", Value: "5"}}, n)
}

func TestDecodeRawPayload_NumberTypes(t *testing.T) {
	p, err := DecodeRawPayload([]byte(`{"ts":1700000000,"temp":27.5,"code":800.0,"ok":true,"none":null,"list":[1,"a"]}`))
	require.NoError(t, err)

	assert.Equal(t, bson.D{
		{Key: "ts", Value: int64(1700000000)},
		{Key: "temp", Value: 27.5},
		{Key: "code", Value: float64(800)},
		{Key: "ok", Value: true},
		{Key: "none", Value: nil},
		{Key: "list", Value: bson.A{int64(1), "a"}},
	}, p.Document)
}

func TestDecodeRawPayload_RejectsTrailingData(t *testing.T) {
	_, err := DecodeRawPayload([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = DecodeRawPayload([]byte(`{"a":1`))
	assert.Error(t, err)
}

func TestRawPayload_IsEmpty(t *testing.T) {
	var nilPayload *RawPayload
	assert.True(t, nilPayload.IsEmpty())

	p, err := DecodeRawPayload([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
}

func TestRawPayload_WithIngestedAtDoesNotAlias(t *testing.T) {
	p, err := DecodeRawPayload([]byte(`{"city_name":"Lagos"}`))
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := p.WithIngestedAt(at)
	require.Len(t, doc, 2)
	assert.Equal(t, bson.E{Key: IngestedAtField, Value: at}, doc[1])
	assert.Len(t, p.Document, 1, "元のドキュメントは変更されないこと")
}

func TestCleanRecord_ToDocumentFieldOrder(t *testing.T) {
	rec := CleanRecord{
		CityName:           "Lagos",
		CountryCode:        "NG",
		TsDatetime:         time.Unix(1700000000, 0).UTC(),
		Fields:             bson.D{{Key: "ts", Value: int32(1700000000)}, {Key: "temp", Value: 28.5}},
		WeatherIcon:        "01d",
		WeatherCode:        800,
		WeatherDescription: "clear sky",
	}

	keys := func(d bson.D) []string {
		out := make([]string, len(d))
		for i, e := range d {
			out[i] = e.Key
		}
		return out
	}

	assert.Equal(t, []string{"city_name", "country_code", "ts_datetime", "ts", "temp",
		"weather_icon", "weather_code", "weather_description"}, keys(rec.ToDocument()))

	rec.IngestedAt = time.Now().UTC()
	doc := rec.ToDocument()
	assert.Equal(t, IngestedAtField, doc[len(doc)-1].Key)
}
