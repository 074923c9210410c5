package models

import "testing"

func TestSignificantChange(t *testing.T) {
	tests := []struct {
		from, to MotionState
		want     bool
	}{
		{MotionStill, MotionStill, false},
		{MotionStill, MotionWalking, true},
		{MotionVehicle, MotionStill, true},
		{MotionWalking, MotionRunning, false},
		{MotionRunning, MotionCycling, false},
		{MotionWalking, MotionCycling, true},
		{MotionWalking, MotionVehicle, true},
		{MotionVehicle, MotionCycling, false},
		{MotionUnknown, MotionVehicle, true},
		{MotionUnknown, MotionRunning, false},
	}

	for _, tt := range tests {
		if got := SignificantChange(tt.from, tt.to); got != tt.want {
			t.Errorf("SignificantChange(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestMotionStateValidity(t *testing.T) {
	for _, state := range []MotionState{MotionStill, MotionWalking, MotionRunning, MotionCycling, MotionVehicle, MotionUnknown} {
		if !state.IsValid() {
			t.Errorf("%s reported invalid", state)
		}
	}
	if MotionState("levitating").IsValid() {
		t.Error("made-up state reported valid")
	}
}
