package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
	"github.com/tigerroll/weather_etl/pkg/batch/util/clock"

	"github.com/tigerroll/weather_etl/example/weather/repository/mocks"
)

const testConfig = `
weather_api:
  url: http://localhost/unused
  key: test-key
  timeout_seconds: 2
output:
  raw_data: out/raw/weather.json
document_store:
  host: localhost
  database: weather
  raw_collection: raw_weather
  clean_collection: clean_weather
batch:
  job_name: weatherJob
system:
  logging:
    level: ERROR
`

const forecastBody = `{
  "city_name": "Lagos",
  "country_code": "NG",
  "data": [
    {"ts": 1700000000, "temp": 27.5, "weather": {"icon": "c01n", "code": 800, "description": "Clear sky"}},
    {"ts": 1700003600, "temp": 27.1, "weather": {"icon": "c02n", "code": 801, "description": "Few clouds"}}
  ]
}`

func loadJSL(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile("../resources/job.yaml")
	require.NoError(t, err)
	return b
}

func forecastServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lagos", r.URL.Query().Get("city"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func options(t *testing.T, fs afero.Fs, store *mocks.DocumentStore, connectErr error) Options {
	t.Helper()
	t.Setenv("api_key", "test-key")
	return Options{
		EmbeddedConfig: []byte(testConfig),
		EmbeddedJSL:    loadJSL(t),
		Dependencies: Dependencies{
			Fs:      fs,
			Connect: mocks.Connector(store, connectErr),
			Clock:   clock.NewTicking(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Millisecond),
		},
	}
}

func TestRunApplication_Success(t *testing.T) {
	srv := forecastServer(t, http.StatusOK, forecastBody)
	t.Setenv("api_url", srv.URL)

	var cleanDocs []interface{}
	store := &mocks.DocumentStore{}
	store.On("InsertOne", mock.Anything, "raw_weather", mock.Anything).Return(nil).Once()
	store.On("InsertMany", mock.Anything, "clean_weather", mock.MatchedBy(func(docs []interface{}) bool {
		return len(docs) == 2
	})).Run(func(args mock.Arguments) {
		cleanDocs = args.Get(2).([]interface{})
	}).Return(2, nil).Once()
	store.On("Close", mock.Anything).Return(nil)

	fs := afero.NewMemMapFs()
	code := RunApplication(context.Background(), options(t, fs, store, nil))

	assert.Equal(t, 0, code)
	store.AssertExpectations(t)
	exists, err := afero.Exists(fs, "out/raw/weather.json")
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, cleanDocs, 2)
	first := cleanDocs[0].(bson.D)
	assert.Equal(t, []string{
		"city_name", "country_code", "ts_datetime", "ts", "temp",
		"weather_icon", "weather_code", "weather_description", "_ingested_at_",
	}, keysOf(first))
	assert.Equal(t, "Lagos", valueOf(first, "city_name"))
	assert.Equal(t, "NG", valueOf(first, "country_code"))
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), valueOf(first, "ts_datetime"))
	assert.Equal(t, "c01n", valueOf(first, "weather_icon"))
	assert.Equal(t, 800, valueOf(first, "weather_code"))
	assert.Equal(t, "Clear sky", valueOf(first, "weather_description"))

	second := cleanDocs[1].(bson.D)
	assert.Equal(t, time.Date(2023, 11, 14, 23, 13, 20, 0, time.UTC), valueOf(second, "ts_datetime"))
	assert.Equal(t, 801, valueOf(second, "weather_code"))
	for _, doc := range []bson.D{first, second} {
		assert.NotContains(t, keysOf(doc), "weather")
	}
}

func TestRunApplication_EmptyDataFails(t *testing.T) {
	srv := forecastServer(t, http.StatusOK, `{"city_name":"Lagos","country_code":"NG","data":[]}`)
	t.Setenv("api_url", srv.URL)

	store := &mocks.DocumentStore{}
	store.On("InsertOne", mock.Anything, "raw_weather", mock.Anything).Return(nil).Once()
	store.On("Close", mock.Anything).Return(nil)

	fs := afero.NewMemMapFs()
	code := RunApplication(context.Background(), options(t, fs, store, nil))

	assert.Equal(t, 1, code)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything, mock.Anything)
	exists, _ := afero.Exists(fs, "out/raw/weather.json")
	assert.True(t, exists)
}

func TestRunApplication_MalformedObservationFails(t *testing.T) {
	for name, body := range map[string]string{
		"missing ts":      `{"city_name":"Lagos","country_code":"NG","data":[{"temp":27.5,"weather":{"icon":"c01n","code":800,"description":"Clear sky"}}]}`,
		"missing weather": `{"city_name":"Lagos","country_code":"NG","data":[{"ts":1700000000,"temp":27.5}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := forecastServer(t, http.StatusOK, body)
			t.Setenv("api_url", srv.URL)

			store := &mocks.DocumentStore{}
			store.On("InsertOne", mock.Anything, "raw_weather", mock.Anything).Return(nil).Once()
			store.On("Close", mock.Anything).Return(nil)

			fs := afero.NewMemMapFs()
			code := RunApplication(context.Background(), options(t, fs, store, nil))

			assert.Equal(t, 1, code)
			store.AssertExpectations(t)
			store.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything, mock.Anything)
			exists, _ := afero.Exists(fs, "out/raw/weather.json")
			assert.True(t, exists, "変換前のステップは完了していること")
		})
	}
}

func keysOf(doc bson.D) []string {
	keys := make([]string, 0, len(doc))
	for _, e := range doc {
		keys = append(keys, e.Key)
	}
	return keys
}

func valueOf(doc bson.D, key string) interface{} {
	for _, e := range doc {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func TestRunApplication_ExtractFailureStopsPipeline(t *testing.T) {
	srv := forecastServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	t.Setenv("api_url", srv.URL)

	store := &mocks.DocumentStore{}
	fs := afero.NewMemMapFs()
	code := RunApplication(context.Background(), options(t, fs, store, nil))

	assert.Equal(t, 1, code)
	exists, _ := afero.Exists(fs, "out/raw/weather.json")
	assert.False(t, exists)
	store.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunApplication_StoreUnreachableKeepsRawFile(t *testing.T) {
	srv := forecastServer(t, http.StatusOK, forecastBody)
	t.Setenv("api_url", srv.URL)

	fs := afero.NewMemMapFs()
	code := RunApplication(context.Background(), options(t, fs, nil, errors.New("server selection timeout")))

	assert.Equal(t, 1, code)
	exists, _ := afero.Exists(fs, "out/raw/weather.json")
	assert.True(t, exists, "ファイル保存はストア保存より前に完了していること")
}

func TestRunApplication_InvalidConfig(t *testing.T) {
	opts := options(t, afero.NewMemMapFs(), &mocks.DocumentStore{}, nil)
	opts.EmbeddedConfig = []byte("weather_api: [")
	assert.Equal(t, 1, RunApplication(context.Background(), opts))
}

func TestRunApplication_CancelledContext(t *testing.T) {
	srv := forecastServer(t, http.StatusOK, forecastBody)
	t.Setenv("api_url", srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 1, RunApplication(ctx, options(t, afero.NewMemMapFs(), &mocks.DocumentStore{}, nil)))
}

func TestHandleApplicationError(t *testing.T) {
	completed := core.NewJobExecution("i", "weatherJob", core.NewJobParameters())
	completed.MarkAsCompleted()
	assert.Equal(t, 0, handleApplicationError(nil, completed, "weatherJob"))

	stopped := core.NewJobExecution("i", "weatherJob", core.NewJobParameters())
	stopped.MarkAsStopped()
	assert.Equal(t, 1, handleApplicationError(nil, stopped, "weatherJob"))

	assert.Equal(t, 1, handleApplicationError(errors.New("launch failed"), nil, "weatherJob"))
}
