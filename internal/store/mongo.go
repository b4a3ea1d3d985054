package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/airdatahub/airdata-fetch/internal/measurement"
)

const duplicateKeyCode = 11000

// MongoGateway implements measurement.Gateway on top of a MongoDB
// collection. Correctness of the whole pipeline's dedup guarantee rests on
// the unique index this gateway creates; concurrent unordered writes from
// all sources rely on it instead of any client-side locking.
type MongoGateway struct {
	coll *mongo.Collection
	log  *zap.SugaredLogger
}

func NewMongoGateway(client *mongo.Client, database, collection string, log *zap.SugaredLogger) *MongoGateway {
	return &MongoGateway{
		coll: client.Database(database).Collection(collection),
		log:  log,
	}
}

// EnsureSchema creates the dedup unique index and the secondary lookup
// indexes. It is idempotent; Mongo treats re-creating an existing index as
// a no-op. Failure to establish the unique index is returned as an error
// and must be treated as fatal by the caller.
func (g *MongoGateway) EnsureSchema(ctx context.Context) error {
	unique := mongo.IndexModel{
		Keys: bson.D{
			{Key: "location", Value: 1},
			{Key: "parameter", Value: 1},
			{Key: "date.utc", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("measurement_dedup_key"),
	}
	if _, err := g.coll.Indexes().CreateOne(ctx, unique); err != nil {
		return fmt.Errorf("create unique index: %w", err)
	}

	secondary := []mongo.IndexModel{
		{Keys: bson.D{{Key: "city", Value: 1}}},
		{Keys: bson.D{{Key: "date.utc", Value: 1}}},
		{Keys: bson.D{{Key: "city", Value: 1}, {Key: "location", Value: 1}}},
		{Keys: bson.D{{Key: "country", Value: 1}, {Key: "date.utc", Value: 1}}},
		{Keys: bson.D{{Key: "country", Value: 1}}},
		{Keys: bson.D{{Key: "location", Value: 1}, {Key: "date.utc", Value: 1}}},
	}
	if _, err := g.coll.Indexes().CreateMany(ctx, secondary); err != nil {
		// Lookup indexes affect query performance only, not dedup
		// correctness, so their failure does not abort startup.
		g.log.Warnw("failed to create secondary indexes", "error", err)
	}

	return nil
}

// WriteBatch inserts measurements with unordered semantics: a duplicate
// key on one record never aborts the rest of the batch. Duplicates are
// absorbed silently; the returned count covers only newly inserted
// records.
func (g *MongoGateway) WriteBatch(ctx context.Context, sourceName string, measurements []measurement.Measurement) (int, error) {
	if len(measurements) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(measurements))
	for i, m := range measurements {
		docs[i] = m
	}

	_, err := g.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(docs), nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return 0, fmt.Errorf("insert measurements for %s: %w", sourceName, err)
	}

	inserted := len(docs) - len(bwe.WriteErrors)
	duplicates := 0
	for _, we := range bwe.WriteErrors {
		if we.Code == duplicateKeyCode {
			duplicates++
		}
	}
	if duplicates < len(bwe.WriteErrors) {
		return inserted, fmt.Errorf("insert measurements for %s: %w", sourceName, err)
	}

	if duplicates > 0 {
		g.log.Debugw("skipped duplicate measurements", "source", sourceName, "duplicates", duplicates)
	}
	return inserted, nil
}
