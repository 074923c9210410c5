package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trackpulse/models"
	"trackpulse/repositories"
	"trackpulse/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const latestPositionTTL = 24 * time.Hour

// PublishService is the production Reporter: it persists the report,
// caches the latest position and fans it out to live observers. The
// persistence write is the success criterion; cache and broadcast are
// best-effort.
type PublishService struct {
	reports *repositories.ReportRepository
	redis   *redis.Client
	hub     *websocket.Hub
}

func NewPublishService(reports *repositories.ReportRepository, redisClient *redis.Client, hub *websocket.Hub) *PublishService {
	return &PublishService{
		reports: reports,
		redis:   redisClient,
		hub:     hub,
	}
}

// Report publishes one position report.
func (ps *PublishService) Report(ctx context.Context, report models.PositionReport) error {
	if err := ps.reports.Create(ctx, &report); err != nil {
		return err
	}

	ps.cacheLatest(ctx, report)

	if ps.hub != nil {
		ps.hub.BroadcastPosition(report)
	}

	return nil
}

// Latest returns the freshest known report for a device, preferring the
// cache over the database.
func (ps *PublishService) Latest(ctx context.Context, deviceID string) (*models.PositionReport, error) {
	if ps.redis != nil {
		raw, err := ps.redis.Get(ctx, latestPositionKey(deviceID)).Result()
		if err == nil {
			var report models.PositionReport
			if err := json.Unmarshal([]byte(raw), &report); err == nil {
				return &report, nil
			}
		}
	}

	return ps.reports.GetLatest(ctx, deviceID)
}

func (ps *PublishService) cacheLatest(ctx context.Context, report models.PositionReport) {
	if ps.redis == nil {
		return
	}

	raw, err := json.Marshal(report)
	if err != nil {
		return
	}

	if err := ps.redis.Set(ctx, latestPositionKey(report.DeviceID), raw, latestPositionTTL).Err(); err != nil {
		logrus.Debugf("Failed to cache latest position for %s: %v", report.DeviceID, err)
	}
}

func latestPositionKey(deviceID string) string {
	return fmt.Sprintf("trackpulse:latest:%s", deviceID)
}
