package mongo

import (
	"bytes"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes pre-cleans duplicate documents and creates the collection's
// indexes. The unique natural-key index cannot be built while duplicates
// exist, so cleanup always runs first. Index failure fails the run.
func (l *Loader) EnsureIndexes(ctx context.Context) error {
	if l.state != StateConnected {
		return &TransitionError{Op: "ensure indexes", From: l.state}
	}
	if l.collection == nil {
		l.state = StateIndexesEnsured
		return nil
	}

	removed, err := l.removeDuplicates(ctx)
	if err != nil {
		l.state = StateFailed
		return fmt.Errorf("pre-clean duplicates: %w", err)
	}
	if removed > 0 {
		l.logger.Warn("removed duplicate documents before unique index", "count", removed)
	}

	models := []mongodrv.IndexModel{
		{
			Keys: bson.D{
				{Key: "station.id", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().SetName("station_timestamp_unique_idx").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "station.network", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().SetName("network_timestamp_idx"),
		},
		{
			Keys:    bson.D{{Key: "station.location_geo", Value: "2dsphere"}},
			Options: options.Index().SetName("location_geo_idx"),
		},
	}
	if _, err := l.collection.Indexes().CreateMany(ctx, models); err != nil {
		l.state = StateFailed
		return fmt.Errorf("create indexes: %w", err)
	}

	l.state = StateIndexesEnsured
	l.logger.Info("mongodb indexes ensured")
	return nil
}

// removeDuplicates deletes all but the newest document per natural key.
// Duplicates can only predate the unique index; this is a one-time repair
// that normally deletes nothing.
func (l *Loader) removeDuplicates(ctx context.Context) (int64, error) {
	pipeline := mongodrv.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "station_id", Value: "$station.id"},
				{Key: "timestamp", Value: "$timestamp"},
			}},
			{Key: "ids", Value: bson.D{{Key: "$push", Value: "$_id"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$match", Value: bson.D{
			{Key: "count", Value: bson.D{{Key: "$gt", Value: 1}}},
		}}},
	}

	cursor, err := l.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate duplicates: %w", err)
	}
	var groups []struct {
		IDs []primitive.ObjectID `bson:"ids"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return 0, fmt.Errorf("decode duplicate groups: %w", err)
	}

	var removed int64
	for _, group := range groups {
		victims := duplicateVictims(group.IDs)
		if len(victims) == 0 {
			continue
		}
		res, err := l.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": victims}})
		if err != nil {
			return removed, fmt.Errorf("delete duplicates: %w", err)
		}
		removed += res.DeletedCount
	}
	return removed, nil
}

// duplicateVictims returns every id except the newest. ObjectIDs start with
// a big-endian creation timestamp, so byte order is insertion order.
func duplicateVictims(ids []primitive.ObjectID) []primitive.ObjectID {
	if len(ids) < 2 {
		return nil
	}
	newest := ids[0]
	for _, id := range ids[1:] {
		if bytes.Compare(id[:], newest[:]) > 0 {
			newest = id
		}
	}
	victims := make([]primitive.ObjectID, 0, len(ids)-1)
	for _, id := range ids {
		if id != newest {
			victims = append(victims, id)
		}
	}
	return victims
}
