package workers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"trackpulse/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// TrackingControl is the slice of the tracking service the wake listener
// drives. All three calls are idempotent, which is what makes duplicate
// and out-of-order wake signals safe.
type TrackingControl interface {
	Start(targetID, requesterID string) error
	Heartbeat(targetID, requesterID string) error
	Stop(targetID string) error
}

// ReportRequester asks a device's scheduler for one immediate report.
type ReportRequester interface {
	RequestReport(deviceID string) bool
}

// WakeWorker listens on the push transport's redis channel for wake
// signals: start/stop live tracking, heartbeats and one-off report
// requests. Delivery is at-most-once per attempt with no ordering
// guarantee; the worker just decodes, validates and dispatches.
type WakeWorker struct {
	redis    *redis.Client
	channel  string
	tracking TrackingControl
	reports  ReportRequester
	validate *validator.Validate

	isRunning bool
	mutex     sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      WakeWorkerStats
	statsMutex sync.RWMutex
}

type WakeWorkerStats struct {
	MessagesReceived int64     `json:"messagesReceived"`
	MessagesDropped  int64     `json:"messagesDropped"`
	StartsHandled    int64     `json:"startsHandled"`
	StopsHandled     int64     `json:"stopsHandled"`
	HeartbeatsSeen   int64     `json:"heartbeatsSeen"`
	ReportsRequested int64     `json:"reportsRequested"`
	LastMessageAt    time.Time `json:"lastMessageAt"`
	StartTime        time.Time `json:"startTime"`
}

func NewWakeWorker(redisClient *redis.Client, channel string, tracking TrackingControl, reports ReportRequester) *WakeWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &WakeWorker{
		redis:    redisClient,
		channel:  channel,
		tracking: tracking,
		reports:  reports,
		validate: validator.New(),
		ctx:      ctx,
		cancel:   cancel,
		stats: WakeWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (ww *WakeWorker) Start() error {
	ww.mutex.Lock()
	defer ww.mutex.Unlock()

	if ww.isRunning {
		return nil
	}
	ww.isRunning = true

	ww.wg.Add(1)
	go ww.listen()

	logrus.Infof("Wake worker listening on channel %s", ww.channel)
	return nil
}

func (ww *WakeWorker) Stop() error {
	ww.mutex.Lock()
	defer ww.mutex.Unlock()

	if !ww.isRunning {
		return nil
	}
	ww.isRunning = false

	ww.cancel()
	ww.wg.Wait()

	logrus.Info("Wake worker stopped")
	return nil
}

func (ww *WakeWorker) listen() {
	defer ww.wg.Done()

	pubsub := ww.redis.Subscribe(ww.ctx, ww.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ww.HandlePayload([]byte(msg.Payload))

		case <-ww.ctx.Done():
			return
		}
	}
}

// HandlePayload decodes and dispatches one wake signal. Malformed or
// unknown messages are dropped with a log line, never an error that
// escapes the worker.
func (ww *WakeWorker) HandlePayload(payload []byte) {
	ww.statsMutex.Lock()
	ww.stats.MessagesReceived++
	ww.stats.LastMessageAt = time.Now()
	ww.statsMutex.Unlock()

	var msg models.WakeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		logrus.Warnf("Dropping malformed wake message: %v", err)
		ww.incrementDropped()
		return
	}
	if err := ww.validate.Struct(msg); err != nil {
		logrus.Warnf("Dropping invalid wake message: %v", err)
		ww.incrementDropped()
		return
	}

	switch msg.Kind {
	case models.WakeStartTracking:
		if err := ww.tracking.Start(msg.TargetID, msg.RequesterID); err != nil {
			logrus.Errorf("Wake start for %s failed: %v", msg.TargetID, err)
			return
		}
		ww.bump(func(s *WakeWorkerStats) { s.StartsHandled++ })

	case models.WakeStopTracking:
		if err := ww.tracking.Stop(msg.TargetID); err != nil {
			logrus.Errorf("Wake stop for %s failed: %v", msg.TargetID, err)
			return
		}
		ww.bump(func(s *WakeWorkerStats) { s.StopsHandled++ })

	case models.WakeHeartbeat:
		if err := ww.tracking.Heartbeat(msg.TargetID, msg.RequesterID); err != nil {
			logrus.Errorf("Wake heartbeat for %s failed: %v", msg.TargetID, err)
			return
		}
		ww.bump(func(s *WakeWorkerStats) { s.HeartbeatsSeen++ })

	case models.WakeReportOnce:
		if !ww.reports.RequestReport(msg.TargetID) {
			logrus.Warnf("Report request for unknown device %s", msg.TargetID)
			ww.incrementDropped()
			return
		}
		ww.bump(func(s *WakeWorkerStats) { s.ReportsRequested++ })
	}
}

func (ww *WakeWorker) GetStats() WakeWorkerStats {
	ww.statsMutex.RLock()
	defer ww.statsMutex.RUnlock()
	return ww.stats
}

func (ww *WakeWorker) bump(f func(*WakeWorkerStats)) {
	ww.statsMutex.Lock()
	f(&ww.stats)
	ww.statsMutex.Unlock()
}

func (ww *WakeWorker) incrementDropped() {
	ww.statsMutex.Lock()
	ww.stats.MessagesDropped++
	ww.statsMutex.Unlock()
}
