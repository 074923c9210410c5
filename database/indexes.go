package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes every query path relies on. CreateMany
// is idempotent, so this is safe on every startup.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reports := db.Collection("position_reports")
	_, err := reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "deviceId", Value: 1}, {Key: "reportedAt", Value: -1}},
		},
		{
			// Reports age out after 30 days.
			Keys:    bson.D{{Key: "reportedAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(30 * 24 * 3600),
		},
	})
	if err != nil {
		return err
	}

	definitions := db.Collection("geofence_definitions")
	_, err = definitions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "active", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	events := db.Collection("geofence_events")
	_, err = events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "entityId", Value: 1}, {Key: "occurredAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "definitionId", Value: 1}},
		},
	})
	return err
}
