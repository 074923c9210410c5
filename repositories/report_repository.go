package repositories

import (
	"context"
	"time"

	"trackpulse/models"
	"trackpulse/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportRepository persists published position reports.
type ReportRepository struct {
	collection *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{
		collection: db.Collection("position_reports"),
	}
}

func (rr *ReportRepository) Create(ctx context.Context, report *models.PositionReport) error {
	if _, err := rr.collection.InsertOne(ctx, report); err != nil {
		return utils.NewDatabaseError("insert position report", err)
	}
	return nil
}

// GetLatest returns the most recent report for a device.
func (rr *ReportRepository) GetLatest(ctx context.Context, deviceID string) (*models.PositionReport, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "reportedAt", Value: -1}})

	var report models.PositionReport
	err := rr.collection.FindOne(ctx, bson.M{"deviceId": deviceID}, opts).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("position report")
		}
		return nil, utils.NewDatabaseError("find latest report", err)
	}

	return &report, nil
}

// GetHistory returns reports for a device inside a time window, newest first.
func (rr *ReportRepository) GetHistory(ctx context.Context, deviceID string, since time.Time, limit int64) ([]models.PositionReport, error) {
	filter := bson.M{
		"deviceId":   deviceID,
		"reportedAt": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "reportedAt", Value: -1}}).SetLimit(limit)

	cursor, err := rr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewDatabaseError("find report history", err)
	}
	defer cursor.Close(ctx)

	var reports []models.PositionReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, utils.NewDatabaseError("decode report history", err)
	}

	return reports, nil
}

// DeleteOlderThan prunes reports past the retention window.
func (rr *ReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := rr.collection.DeleteMany(ctx, bson.M{"reportedAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, utils.NewDatabaseError("delete old reports", err)
	}
	return result.DeletedCount, nil
}
