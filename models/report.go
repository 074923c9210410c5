package models

import "time"

// Position is a single fix in one consistent coordinate reference system.
type Position struct {
	Latitude   float64   `json:"latitude" bson:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64   `json:"longitude" bson:"longitude" validate:"gte=-180,lte=180"`
	Accuracy   float64   `json:"accuracy" bson:"accuracy"` // meters
	Altitude   float64   `json:"altitude" bson:"altitude"` // meters
	Speed      float64   `json:"speed" bson:"speed"`       // m/s
	Bearing    float64   `json:"bearing" bson:"bearing"`   // degrees 0-360
	RecordedAt time.Time `json:"recordedAt" bson:"recordedAt"`
}

// Accuracy is the precision hint passed to the position source.
type Accuracy string

const (
	AccuracyHigh     Accuracy = "high"
	AccuracyBalanced Accuracy = "balanced"
)

// PowerState is a snapshot of the device power situation at evaluation time.
type PowerState struct {
	BatteryPct int  `json:"batteryPct"`
	IsCharging bool `json:"isCharging"`
	PowerSave  bool `json:"powerSave"`
}

// BatteryBand buckets battery level for interval adjustment.
type BatteryBand int

const (
	BatteryNormal BatteryBand = iota
	BatteryMedium
	BatteryLow
)

// Band maps the battery percentage onto an adjustment band.
func (p PowerState) Band() BatteryBand {
	switch {
	case p.BatteryPct <= 20:
		return BatteryLow
	case p.BatteryPct <= 50:
		return BatteryMedium
	default:
		return BatteryNormal
	}
}

// TriggerReason says why a scheduler evaluation is happening.
type TriggerReason string

const (
	TriggerPeriodic       TriggerReason = "periodic"
	TriggerActivityChange TriggerReason = "activity_change"
	TriggerManual         TriggerReason = "manual"
	TriggerWifiChange     TriggerReason = "wifi_change"
)

// ReportDecision is the outcome of one interval-policy evaluation. It is a
// value, produced fresh on every call and never mutated.
type ReportDecision struct {
	ShouldReport bool          `json:"shouldReport"`
	Reason       string        `json:"reason"`
	Interval     time.Duration `json:"interval"`
}

// DeviceReportState is the per-device bookkeeping owned by that device's
// scheduler. Only the scheduler's own loop mutates it.
type DeviceReportState struct {
	DeviceID string `json:"deviceId"`

	LastPosition   *Position   `json:"lastPosition,omitempty"`
	LastMotion     MotionState `json:"lastMotion"`
	LastReportedAt time.Time   `json:"lastReportedAt"`

	ConsecutiveStill int       `json:"consecutiveStill"`
	StationarySince  time.Time `json:"stationarySince"`

	WifiFingerprint string `json:"wifiFingerprint"`
}

// StationaryFor returns how long the device has been stationary, zero when
// it is not.
func (s *DeviceReportState) StationaryFor(now time.Time) time.Duration {
	if s.StationarySince.IsZero() {
		return 0
	}
	return now.Sub(s.StationarySince)
}

// PositionReport is what the scheduler hands to the Reporter collaborator.
type PositionReport struct {
	ID         string      `json:"id" bson:"_id"`
	DeviceID   string      `json:"deviceId" bson:"deviceId"`
	Position   Position    `json:"position" bson:"position"`
	Motion     MotionState `json:"motion" bson:"motion"`
	BatteryPct int         `json:"batteryPct" bson:"batteryPct"`
	IsCharging bool        `json:"isCharging" bson:"isCharging"`
	Reason     string      `json:"reason" bson:"reason"`
	ReportedAt time.Time   `json:"reportedAt" bson:"reportedAt"`
}
