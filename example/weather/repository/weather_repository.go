package weather_repository

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	config "github.com/tigerroll/weather_etl/pkg/batch/config"
	"github.com/tigerroll/weather_etl/pkg/batch/util/logger"
)

// DocumentStore は天気データを保存するドキュメントストアの操作を定義します。
type DocumentStore interface {
	// InsertOne は1件のドキュメントを collection に挿入します。
	InsertOne(ctx context.Context, collection string, document interface{}) error
	// InsertMany は複数のドキュメントを1回の操作で collection に挿入し、挿入件数を返します。
	InsertMany(ctx context.Context, collection string, documents []interface{}) (int, error)
	// Close は接続を切断します。
	Close(ctx context.Context) error
}

// Connector は接続と疎通確認を済ませた DocumentStore を返す関数です。
// Writer は書き込みごとに新しい接続を開き、書き込み後に閉じます。
type Connector func(ctx context.Context, cfg config.DocumentStoreConfig) (DocumentStore, error)

// MongoDocumentStore は MongoDB を使用する DocumentStore の実装です。
type MongoDocumentStore struct {
	client   *mongo.Client
	database *mongo.Database
}

var _ DocumentStore = (*MongoDocumentStore)(nil)

// ConnectMongo は MongoDB に接続し、プライマリへの Ping で疎通を確認します。
// Ping に失敗した場合は接続を切断してエラーを返します。
func ConnectMongo(ctx context.Context, cfg config.DocumentStoreConfig) (DocumentStore, error) {
	opts := options.Client().
		ApplyURI(cfg.URI()).
		SetConnectTimeout(cfg.ConnectTimeout()).
		SetServerSelectionTimeout(cfg.ConnectTimeout())

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to document store")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		if derr := client.Disconnect(context.WithoutCancel(ctx)); derr != nil {
			logger.Warnf("疎通確認に失敗した接続の切断に失敗しました: %v", derr)
		}
		return nil, errors.Wrapf(err, "failed to ping document store (database: %s)", cfg.Database)
	}

	logger.Debugf("ドキュメントストアに接続しました (database: %s)。", cfg.Database)
	return &MongoDocumentStore{client: client, database: client.Database(cfg.Database)}, nil
}

func (s *MongoDocumentStore) InsertOne(ctx context.Context, collection string, document interface{}) error {
	if _, err := s.database.Collection(collection).InsertOne(ctx, document); err != nil {
		return errors.Wrapf(err, "failed to insert document into %s", collection)
	}
	return nil
}

func (s *MongoDocumentStore) InsertMany(ctx context.Context, collection string, documents []interface{}) (int, error) {
	res, err := s.database.Collection(collection).InsertMany(ctx, documents)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert documents into %s", collection)
	}
	return len(res.InsertedIDs), nil
}

func (s *MongoDocumentStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "failed to disconnect from document store")
	}
	return nil
}
