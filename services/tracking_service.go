package services

import (
	"sync"
	"time"

	"trackpulse/config"
	"trackpulse/models"

	"github.com/sirupsen/logrus"
)

// CadenceController is the slice of the report scheduler the tracking
// session needs: install and remove the high-frequency override.
type CadenceController interface {
	SetOverride(interval time.Duration)
	ClearOverride()
}

// CadenceResolver finds the cadence controller for a target device.
type CadenceResolver interface {
	CadenceController(deviceID string) (CadenceController, bool)
}

// TrackingService owns the process's single live-tracking session slot.
// Start, Heartbeat and Stop are all idempotent; duplicate or out-of-order
// wake signals cannot corrupt the state. Every exit path, explicit stop,
// heartbeat timeout, session cap or shutdown, uninstalls the override;
// partial cleanup is not a reachable state.
type TrackingService struct {
	cfg      config.TrackingConfig
	interval time.Duration
	resolver CadenceResolver

	mu         sync.Mutex
	session    *models.TrackingSession
	cadence    CadenceController
	generation uint64
	watchdog   *time.Timer
	capTimer   *time.Timer

	now func() time.Time
}

func NewTrackingService(cfg config.TrackingConfig, overrideInterval time.Duration, resolver CadenceResolver) *TrackingService {
	return &TrackingService{
		cfg:      cfg,
		interval: overrideInterval,
		resolver: resolver,
		now:      time.Now,
	}
}

// Start enters live tracking for the target, or refreshes the heartbeat if
// a session is already live. StartedAt never changes on a repeated start;
// simultaneous requesters are coalesced onto the one session.
func (ts *TrackingService) Start(targetID, requesterID string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()

	if ts.session != nil {
		if ts.session.TargetID != targetID {
			// Single slot per process. A start for another target while one
			// is live is treated as a no-op, not an error.
			logrus.Warnf("Tracking start for %s ignored, session for %s is live", targetID, ts.session.TargetID)
			return nil
		}
		ts.session.LastHeartbeatAt = now
		if ts.watchdog != nil {
			ts.watchdog.Reset(ts.cfg.HeartbeatWindow)
		}
		logrus.Debugf("Tracking start for %s coalesced onto live session (requester %s)", targetID, requesterID)
		return nil
	}

	cadence, ok := ts.resolver.CadenceController(targetID)
	if !ok {
		logrus.Warnf("Tracking start for unknown device %s ignored", targetID)
		return nil
	}

	ts.session = &models.TrackingSession{
		TargetID:        targetID,
		RequesterID:     requesterID,
		StartedAt:       now,
		LastHeartbeatAt: now,
		State:           models.TrackingLive,
	}
	ts.cadence = cadence
	ts.generation++

	gen := ts.generation
	ts.watchdog = time.AfterFunc(ts.cfg.HeartbeatWindow, func() {
		ts.expire(gen, "heartbeat_timeout")
	})
	if ts.cfg.MaxDuration > 0 {
		ts.capTimer = time.AfterFunc(ts.cfg.MaxDuration, func() {
			ts.expire(gen, "session_cap")
		})
	}

	cadence.SetOverride(ts.interval)

	logrus.Infof("Live tracking started for %s by %s", targetID, requesterID)
	return nil
}

// Heartbeat refreshes the session liveness. A heartbeat for a session that
// already ended is a clean no-op.
func (ts *TrackingService) Heartbeat(targetID, requesterID string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.session == nil || ts.session.TargetID != targetID {
		return nil
	}

	ts.session.LastHeartbeatAt = ts.now()
	if ts.watchdog != nil {
		ts.watchdog.Reset(ts.cfg.HeartbeatWindow)
	}
	return nil
}

// Stop ends the session. Stopping an already-idle slot is success.
func (ts *TrackingService) Stop(targetID string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.session != nil && ts.session.TargetID != targetID {
		return nil
	}
	ts.stopLocked("stop_requested")
	return nil
}

// Shutdown tears the slot down unconditionally.
func (ts *TrackingService) Shutdown() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.stopLocked("shutdown")
}

// Session returns a snapshot of the current session, or an idle one.
func (ts *TrackingService) Session() models.TrackingSession {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.session == nil {
		return models.TrackingSession{State: models.TrackingIdle}
	}
	return *ts.session
}

// expire is the watchdog path. The generation guard makes sure a stale
// timer from an earlier session can never kill a newer one.
func (ts *TrackingService) expire(gen uint64, reason string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.session == nil || gen != ts.generation {
		return
	}
	ts.stopLocked(reason)
}

// stopLocked is the single exit path. It always clears the override, even
// if the slot is already idle, so no cadence can outlive its session.
func (ts *TrackingService) stopLocked(reason string) {
	if ts.watchdog != nil {
		ts.watchdog.Stop()
		ts.watchdog = nil
	}
	if ts.capTimer != nil {
		ts.capTimer.Stop()
		ts.capTimer = nil
	}

	if ts.cadence != nil {
		ts.cadence.ClearOverride()
		ts.cadence = nil
	}

	if ts.session != nil {
		logrus.Infof("Live tracking for %s ended (%s)", ts.session.TargetID, reason)
		ts.session = nil
		ts.generation++
	}
}
