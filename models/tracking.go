package models

import "time"

// TrackingState is the live-tracking session state.
type TrackingState string

const (
	TrackingIdle TrackingState = "idle"
	TrackingLive TrackingState = "live_tracking"
)

// TrackingSession is a snapshot of the single live-tracking slot. Multiple
// simultaneous requesters are coalesced onto one session; RequesterID keeps
// whoever asked first.
type TrackingSession struct {
	TargetID        string        `json:"targetId"`
	RequesterID     string        `json:"requesterId"`
	StartedAt       time.Time     `json:"startedAt"`
	LastHeartbeatAt time.Time     `json:"lastHeartbeatAt"`
	State           TrackingState `json:"state"`
}

// Wake message kinds delivered over the push transport. Delivery is
// at-most-once per attempt with no ordering guarantee.
const (
	WakeStartTracking = "start_tracking"
	WakeStopTracking  = "stop_tracking"
	WakeHeartbeat     = "heartbeat"
	WakeReportOnce    = "report_once"
)

// WakeMessage is the opaque wake signal decoded off the push channel.
type WakeMessage struct {
	Kind        string `json:"kind" validate:"required,oneof=start_tracking stop_tracking heartbeat report_once"`
	TargetID    string `json:"targetId" validate:"required"`
	RequesterID string `json:"requesterId"`
	SentAt      int64  `json:"sentAt,omitempty"` // unix seconds, informational
}
