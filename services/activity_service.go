package services

import (
	"math"
	"sync"
	"time"

	"trackpulse/config"
	"trackpulse/models"
	"trackpulse/utils"

	"github.com/sirupsen/logrus"
)

// Classification thresholds for accelerometer magnitude windows, in m/s²
// with gravity removed. Ordered range checks, first match wins.
const (
	stillMeanMax   = 1.2
	stillStdMax    = 0.35
	walkingMeanMax = 6.5
	runningMeanMax = 12.0
	cruiseStdMax   = 2.0
)

// ClassifyWindow maps a window of motion-magnitude samples onto a motion
// state from its mean and standard deviation. Empty input degrades to
// unknown, never errors.
func ClassifyWindow(samples []float64) models.MotionState {
	if len(samples) == 0 {
		return models.MotionUnknown
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := s - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(samples)))

	switch {
	case mean < stillMeanMax && std < stillStdMax:
		return models.MotionStill
	case mean < stillMeanMax:
		// Low magnitude but persistent vibration: smooth engine hum.
		return models.MotionVehicle
	case mean < walkingMeanMax:
		return models.MotionWalking
	case mean < runningMeanMax:
		return models.MotionRunning
	case std < cruiseStdMax:
		return models.MotionVehicle
	default:
		return models.MotionCycling
	}
}

// confirmState requires N consecutive identical classifications before a
// state change becomes authoritative, and keeps stationary-since
// bookkeeping for the confirmed state. Shared by both providers.
type confirmState struct {
	confirmCount int

	current         models.MotionState
	candidate       models.MotionState
	candidateStreak int
	stationarySince time.Time
}

// observe feeds one raw classification and reports the confirmed state and
// whether it just changed.
func (c *confirmState) observe(raw models.MotionState, now time.Time) (models.MotionState, bool) {
	if raw == c.current {
		c.candidate = ""
		c.candidateStreak = 0
		return c.current, false
	}

	if raw != c.candidate {
		c.candidate = raw
		c.candidateStreak = 1
	} else {
		c.candidateStreak++
	}

	if c.candidateStreak < c.confirmCount {
		return c.current, false
	}

	c.current = c.candidate
	c.candidate = ""
	c.candidateStreak = 0

	if c.current == models.MotionStill {
		if c.stationarySince.IsZero() {
			c.stationarySince = now
		}
	} else {
		c.stationarySince = time.Time{}
	}

	return c.current, true
}

// SensorActivityService classifies raw accelerometer magnitudes over a
// bounded sliding window.
type SensorActivityService struct {
	mu sync.Mutex

	windowSize int
	window     []float64
	state      confirmState

	now func() time.Time
}

func NewSensorActivityService(cfg config.ActivityConfig) *SensorActivityService {
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = 50
	}
	confirm := cfg.ConfirmCount
	if confirm <= 0 {
		confirm = 3
	}

	return &SensorActivityService{
		windowSize: windowSize,
		window:     make([]float64, 0, windowSize),
		state: confirmState{
			confirmCount: confirm,
			current:      models.MotionUnknown,
		},
		now: time.Now,
	}
}

// AddSample appends one magnitude sample, reclassifies the window and
// returns the confirmed state plus whether it just changed.
func (s *SensorActivityService) AddSample(magnitude float64) (models.MotionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.window) == s.windowSize {
		copy(s.window, s.window[1:])
		s.window = s.window[:s.windowSize-1]
	}
	s.window = append(s.window, magnitude)

	raw := ClassifyWindow(s.window)
	state, changed := s.state.observe(raw, s.now())
	if changed {
		logrus.Debugf("Motion state confirmed: %s", state)
	}
	return state, changed
}

// Current returns the confirmed motion state.
func (s *SensorActivityService) Current() models.MotionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.current
}

// StationaryFor returns how long the confirmed state has been still.
func (s *SensorActivityService) StationaryFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.stationarySince.IsZero() {
		return 0
	}
	return now.Sub(s.state.stationarySince)
}

// Speed buckets for the position-delta provider, in m/s.
const (
	speedStillMax   = 0.3
	speedWalkingMax = 2.5
	speedRunningMax = 4.5
	speedCyclingMax = 8.0
)

// SpeedActivityService infers the motion state from speed between
// consecutive position fixes. Interchangeable with the sensor classifier
// behind the same interface.
type SpeedActivityService struct {
	mu sync.Mutex

	last  *models.Position
	state confirmState

	now func() time.Time
}

func NewSpeedActivityService(cfg config.ActivityConfig) *SpeedActivityService {
	confirm := cfg.ConfirmCount
	if confirm <= 0 {
		confirm = 3
	}
	return &SpeedActivityService{
		state: confirmState{
			confirmCount: confirm,
			current:      models.MotionUnknown,
		},
		now: time.Now,
	}
}

// Observe feeds one position fix and returns the confirmed state plus
// whether it just changed.
func (s *SpeedActivityService) Observe(pos models.Position) (models.MotionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	speed := pos.Speed
	if speed <= 0 && s.last != nil {
		speed = utils.CalculateSpeed(
			s.last.Latitude, s.last.Longitude, s.last.RecordedAt.Unix(),
			pos.Latitude, pos.Longitude, pos.RecordedAt.Unix(),
		)
	}
	s.last = &pos

	return s.state.observe(classifySpeed(speed), s.now())
}

func classifySpeed(speed float64) models.MotionState {
	switch {
	case speed < speedStillMax:
		return models.MotionStill
	case speed < speedWalkingMax:
		return models.MotionWalking
	case speed < speedRunningMax:
		return models.MotionRunning
	case speed < speedCyclingMax:
		return models.MotionCycling
	default:
		return models.MotionVehicle
	}
}

// Current returns the confirmed motion state.
func (s *SpeedActivityService) Current() models.MotionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.current
}

// StationaryFor returns how long the confirmed state has been still.
func (s *SpeedActivityService) StationaryFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.stationarySince.IsZero() {
		return 0
	}
	return now.Sub(s.state.stationarySince)
}
