package services

import (
	"testing"
	"time"

	"trackpulse/config"
	"trackpulse/models"
)

func TestClassifyWindow(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    models.MotionState
	}{
		{"empty window degrades to unknown", nil, models.MotionUnknown},
		{"flat low magnitude is still", []float64{0.1, 0.2, 0.1, 0.15}, models.MotionStill},
		{"low magnitude with hum is vehicle", []float64{0.2, 1.0, 0.2, 1.0, 0.2, 1.0}, models.MotionVehicle},
		{"moderate magnitude is walking", []float64{3.0, 4.0, 3.5, 4.5}, models.MotionWalking},
		{"high magnitude is running", []float64{8.0, 9.0, 10.0, 11.0}, models.MotionRunning},
		{"very high steady magnitude is vehicle", []float64{14.0, 14.5, 15.0, 14.2}, models.MotionVehicle},
		{"very high erratic magnitude is cycling", []float64{12.0, 20.0, 13.0, 19.0}, models.MotionCycling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyWindow(tt.samples); got != tt.want {
				t.Errorf("ClassifyWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfirmationHysteresis(t *testing.T) {
	now := time.Now()
	c := confirmState{confirmCount: 3, current: models.MotionStill}

	// Two walking classifications are not enough.
	for i := 0; i < 2; i++ {
		state, changed := c.observe(models.MotionWalking, now)
		if changed || state != models.MotionStill {
			t.Fatalf("observation %d: state = %v changed = %v, want still/false", i, state, changed)
		}
	}

	// The third confirms.
	state, changed := c.observe(models.MotionWalking, now)
	if !changed || state != models.MotionWalking {
		t.Fatalf("state = %v changed = %v, want walking/true", state, changed)
	}

	// Same raw state again is not another change.
	if _, changed := c.observe(models.MotionWalking, now); changed {
		t.Error("repeated observation reported a change")
	}
}

func TestConfirmationResetsOnFlicker(t *testing.T) {
	now := time.Now()
	c := confirmState{confirmCount: 3, current: models.MotionStill}

	c.observe(models.MotionWalking, now)
	c.observe(models.MotionWalking, now)
	c.observe(models.MotionRunning, now) // streak broken
	c.observe(models.MotionWalking, now)
	state, changed := c.observe(models.MotionWalking, now)
	if changed || state != models.MotionStill {
		t.Errorf("state = %v changed = %v, want still/false after broken streak", state, changed)
	}
}

func TestStationaryBookkeeping(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := confirmState{confirmCount: 2, current: models.MotionWalking}

	c.observe(models.MotionStill, base)
	_, changed := c.observe(models.MotionStill, base)
	if !changed {
		t.Fatal("still was not confirmed")
	}
	if c.stationarySince != base {
		t.Errorf("stationarySince = %v, want %v", c.stationarySince, base)
	}

	// Leaving still clears the mark.
	c.observe(models.MotionVehicle, base.Add(time.Minute))
	c.observe(models.MotionVehicle, base.Add(time.Minute))
	if !c.stationarySince.IsZero() {
		t.Error("stationarySince survived leaving still")
	}
}

func TestSensorActivityServiceWindow(t *testing.T) {
	svc := NewSensorActivityService(config.ActivityConfig{WindowSize: 4, ConfirmCount: 2})

	if svc.Current() != models.MotionUnknown {
		t.Fatalf("initial state = %v, want unknown", svc.Current())
	}

	// Fill the window with still samples until confirmed.
	var state models.MotionState
	for i := 0; i < 4; i++ {
		state, _ = svc.AddSample(0.1)
	}
	if state != models.MotionStill {
		t.Errorf("state after still samples = %v, want still", state)
	}

	// A burst of strong movement slides the old samples out.
	for i := 0; i < 8; i++ {
		state, _ = svc.AddSample(9.5)
	}
	if state != models.MotionRunning {
		t.Errorf("state after running samples = %v, want running", state)
	}
}

func TestSensorActivityServiceStationaryFor(t *testing.T) {
	svc := NewSensorActivityService(config.ActivityConfig{WindowSize: 4, ConfirmCount: 1})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	svc.AddSample(0.1)
	svc.AddSample(0.1)

	got := svc.StationaryFor(base.Add(10 * time.Minute))
	if got != 10*time.Minute {
		t.Errorf("StationaryFor = %v, want 10m", got)
	}
}

func TestSpeedActivityServiceBuckets(t *testing.T) {
	tests := []struct {
		speed float64
		want  models.MotionState
	}{
		{0.0, models.MotionStill},
		{1.4, models.MotionWalking},
		{3.5, models.MotionRunning},
		{6.0, models.MotionCycling},
		{20.0, models.MotionVehicle},
	}

	for _, tt := range tests {
		if got := classifySpeed(tt.speed); got != tt.want {
			t.Errorf("classifySpeed(%v) = %v, want %v", tt.speed, got, tt.want)
		}
	}
}

func TestSpeedActivityServiceConfirms(t *testing.T) {
	svc := NewSpeedActivityService(config.ActivityConfig{ConfirmCount: 2})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fix := func(speed float64, at time.Time) models.Position {
		return models.Position{Latitude: 52.0, Longitude: 13.0, Speed: speed, RecordedAt: at}
	}

	svc.Observe(fix(1.5, base))
	state, changed := svc.Observe(fix(1.5, base.Add(time.Minute)))
	if !changed || state != models.MotionWalking {
		t.Errorf("state = %v changed = %v, want walking/true", state, changed)
	}
}
