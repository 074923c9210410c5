package repositories

import (
	"context"

	"trackpulse/models"
	"trackpulse/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GeofenceRepository persists boundary definitions and the events they fire.
type GeofenceRepository struct {
	definitions *mongo.Collection
	events      *mongo.Collection
}

func NewGeofenceRepository(db *mongo.Database) *GeofenceRepository {
	return &GeofenceRepository{
		definitions: db.Collection("geofence_definitions"),
		events:      db.Collection("geofence_events"),
	}
}

func (gr *GeofenceRepository) UpsertDefinition(ctx context.Context, def *models.GeofenceDefinition) error {
	opts := options.Replace().SetUpsert(true)
	_, err := gr.definitions.ReplaceOne(ctx, bson.M{"_id": def.ID}, def, opts)
	if err != nil {
		return utils.NewDatabaseError("upsert geofence definition", err)
	}
	return nil
}

func (gr *GeofenceRepository) DeleteDefinition(ctx context.Context, definitionID string) error {
	result, err := gr.definitions.DeleteOne(ctx, bson.M{"_id": definitionID})
	if err != nil {
		return utils.NewDatabaseError("delete geofence definition", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("geofence definition")
	}
	return nil
}

// DeactivateDefinition persists a one-shot definition going inactive after
// its first trigger.
func (gr *GeofenceRepository) DeactivateDefinition(ctx context.Context, definitionID string) error {
	_, err := gr.definitions.UpdateOne(ctx,
		bson.M{"_id": definitionID},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return utils.NewDatabaseError("deactivate geofence definition", err)
	}
	return nil
}

// GetActiveDefinitions returns the active definitions snapshot.
func (gr *GeofenceRepository) GetActiveDefinitions(ctx context.Context) ([]models.GeofenceDefinition, error) {
	filter := bson.M{"active": bson.M{"$ne": false}}

	cursor, err := gr.definitions.Find(ctx, filter)
	if err != nil {
		return nil, utils.NewDatabaseError("find geofence definitions", err)
	}
	defer cursor.Close(ctx)

	var defs []models.GeofenceDefinition
	if err := cursor.All(ctx, &defs); err != nil {
		return nil, utils.NewDatabaseError("decode geofence definitions", err)
	}

	return defs, nil
}

func (gr *GeofenceRepository) CreateEvent(ctx context.Context, event *models.BoundaryEvent) error {
	if _, err := gr.events.InsertOne(ctx, event); err != nil {
		return utils.NewDatabaseError("insert boundary event", err)
	}
	return nil
}
