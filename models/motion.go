package models

// MotionState is the discrete movement classification of a device.
type MotionState string

const (
	MotionStill   MotionState = "still"
	MotionWalking MotionState = "walking"
	MotionRunning MotionState = "running"
	MotionCycling MotionState = "cycling"
	MotionVehicle MotionState = "vehicle"
	MotionUnknown MotionState = "unknown"
)

// speedRank orders motion states by typical ground speed. Unknown ranks
// between walking and vehicle so that transitions to or from it are not
// treated as dramatic.
var speedRank = map[MotionState]int{
	MotionStill:   0,
	MotionWalking: 1,
	MotionRunning: 2,
	MotionUnknown: 2,
	MotionCycling: 3,
	MotionVehicle: 4,
}

// SpeedRank returns the ordinal speed rank of the state.
func (m MotionState) SpeedRank() int {
	if r, ok := speedRank[m]; ok {
		return r
	}
	return speedRank[MotionUnknown]
}

// IsValid reports whether m is one of the defined motion states.
func (m MotionState) IsValid() bool {
	_, ok := speedRank[m]
	return ok
}

// SignificantChange reports whether moving from one state to the other
// should count as a real change of movement mode, not sensor jitter.
// A rank difference of two or more, or any transition into or out of
// still, qualifies.
func SignificantChange(from, to MotionState) bool {
	if from == to {
		return false
	}
	if from == MotionStill || to == MotionStill {
		return true
	}
	diff := from.SpeedRank() - to.SpeedRank()
	if diff < 0 {
		diff = -diff
	}
	return diff >= 2
}
