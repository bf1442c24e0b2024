package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	config "github.com/tigerroll/weather_etl/pkg/batch/config"

	weather_repository "github.com/tigerroll/weather_etl/example/weather/repository"
)

type DocumentStore struct {
	mock.Mock
}

func (d *DocumentStore) InsertOne(ctx context.Context, collection string, document interface{}) error {
	args := d.Called(ctx, collection, document)
	return args.Error(0)
}

func (d *DocumentStore) InsertMany(ctx context.Context, collection string, documents []interface{}) (int, error) {
	args := d.Called(ctx, collection, documents)
	return args.Int(0), args.Error(1)
}

func (d *DocumentStore) Close(ctx context.Context) error {
	args := d.Called(ctx)
	return args.Error(0)
}

// Connector は store を返す Connector を作成します。err が nil でない場合は接続失敗として扱います。
func Connector(store weather_repository.DocumentStore, err error) weather_repository.Connector {
	return func(ctx context.Context, cfg config.DocumentStoreConfig) (weather_repository.DocumentStore, error) {
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
