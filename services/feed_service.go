package services

import (
	"context"
	"sync"

	"trackpulse/models"
	"trackpulse/utils"
)

// DeviceFeed is the seam between the platform layer and the engine for one
// device: the OS adapters (or the input API) push position fixes, power
// snapshots and motion samples in; the scheduler pulls through the
// PositionSource/PowerMonitor/ActivityProvider interfaces.
type DeviceFeed struct {
	deviceID string
	sensor   *SensorActivityService

	mu       sync.RWMutex
	position *models.Position
	power    models.PowerState

	scheduler *ReportScheduler
}

func NewDeviceFeed(deviceID string, sensor *SensorActivityService) *DeviceFeed {
	return &DeviceFeed{
		deviceID: deviceID,
		sensor:   sensor,
		// Sane default until the platform reports real power state.
		power: models.PowerState{BatteryPct: 100},
	}
}

// Bind attaches the scheduler so confirmed activity changes can pre-empt
// its timer. Called once, after registration.
func (f *DeviceFeed) Bind(scheduler *ReportScheduler) {
	f.mu.Lock()
	f.scheduler = scheduler
	f.mu.Unlock()
}

// Activity exposes the feed's activity provider.
func (f *DeviceFeed) Activity() *SensorActivityService {
	return f.sensor
}

// Position implements the position source for the scheduler. The accuracy
// hint is honored by the platform adapter; the feed just hands out the
// freshest fix it has.
func (f *DeviceFeed) Position(ctx context.Context, accuracy models.Accuracy) (models.Position, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.position == nil {
		return models.Position{}, utils.NewServiceError(utils.ErrCodePosition, "no position fix yet")
	}
	return *f.position, nil
}

// Power implements the power monitor for the scheduler.
func (f *DeviceFeed) Power() models.PowerState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.power
}

// PushPosition records a fresh fix from the platform.
func (f *DeviceFeed) PushPosition(position models.Position) {
	f.mu.Lock()
	f.position = &position
	f.mu.Unlock()
}

// PushPower records a power snapshot from the platform.
func (f *DeviceFeed) PushPower(power models.PowerState) {
	f.mu.Lock()
	f.power = power
	f.mu.Unlock()
}

// PushSamples feeds raw motion magnitudes into the classifier. A confirmed
// significant state change fires an immediate scheduler re-evaluation.
func (f *DeviceFeed) PushSamples(samples []float64) models.MotionState {
	prev := f.sensor.Current()

	state := prev
	var changed bool
	for _, sample := range samples {
		if s, c := f.sensor.AddSample(sample); c {
			state = s
			changed = true
		} else {
			state = s
		}
	}

	if changed {
		f.mu.RLock()
		scheduler := f.scheduler
		f.mu.RUnlock()
		if scheduler != nil {
			scheduler.NoteActivityChange(prev, state)
		}
	}

	return state
}
