package services

import (
	"time"

	"trackpulse/config"
	"trackpulse/models"
)

// PolicyInput is everything an interval decision depends on. Decide is a
// pure function of this struct plus the policy constants: no hidden state,
// same output for the same input, always returns.
type PolicyInput struct {
	Motion              models.MotionState
	BatteryPct          int
	IsCharging          bool
	PowerSave           bool
	WifiChanged         bool
	StationaryConfirmed bool
	DeepStationary      bool
	Trigger             models.TriggerReason
}

// IntervalPolicy decides when and how often the device should report its
// position, trading freshness against battery.
type IntervalPolicy struct {
	cfg config.PolicyConfig
}

func NewIntervalPolicy(cfg config.PolicyConfig) *IntervalPolicy {
	return &IntervalPolicy{cfg: cfg}
}

// Decide evaluates the rules in priority order; the first match wins.
func (p *IntervalPolicy) Decide(in PolicyInput) models.ReportDecision {
	power := models.PowerState{BatteryPct: in.BatteryPct, IsCharging: in.IsCharging}
	lowBattery := power.Band() == models.BatteryLow

	// Charging devices report freely at the base cadence.
	if in.IsCharging {
		return models.ReportDecision{
			ShouldReport: true,
			Reason:       "charging",
			Interval:     p.baseInterval(in.Motion),
		}
	}

	// Power-save while still: report only on real movement signals.
	if in.PowerSave && in.Motion == models.MotionStill {
		return models.ReportDecision{
			ShouldReport: in.Trigger == models.TriggerActivityChange || in.WifiChanged,
			Reason:       "power_save_still",
			Interval:     2 * p.cfg.LowBatteryFloor,
		}
	}

	// Low battery and parked for a long time: skip entirely to save power.
	if lowBattery && in.DeepStationary {
		return models.ReportDecision{
			ShouldReport: false,
			Reason:       "low_battery_deep_stationary",
			Interval:     2 * p.cfg.StillInterval,
		}
	}

	if lowBattery && in.Motion == models.MotionStill {
		return models.ReportDecision{
			ShouldReport: in.Trigger == models.TriggerActivityChange,
			Reason:       "low_battery_still",
			Interval:     p.cfg.LowBatteryFloor,
		}
	}

	// A new Wi-Fi environment implies possible relocation even while still.
	if in.WifiChanged && in.Motion == models.MotionStill {
		return models.ReportDecision{
			ShouldReport: true,
			Reason:       "wifi_environment_changed",
			Interval:     p.adjustedInterval(in.Motion, power.Band()),
		}
	}

	if in.StationaryConfirmed && in.Motion == models.MotionStill {
		interval := time.Duration(float64(p.cfg.StillInterval) * p.cfg.StillMultiplier)
		if interval > p.cfg.StillCap {
			interval = p.cfg.StillCap
		}
		return models.ReportDecision{
			ShouldReport: !(in.Trigger == models.TriggerPeriodic && in.DeepStationary),
			Reason:       "stationary_confirmed",
			Interval:     interval,
		}
	}

	return models.ReportDecision{
		ShouldReport: true,
		Reason:       "default",
		Interval:     p.adjustedInterval(in.Motion, power.Band()),
	}
}

func (p *IntervalPolicy) baseInterval(motion models.MotionState) time.Duration {
	switch motion {
	case models.MotionStill:
		return p.cfg.StillInterval
	case models.MotionWalking:
		return p.cfg.WalkingInterval
	case models.MotionRunning:
		return p.cfg.RunningInterval
	case models.MotionCycling:
		return p.cfg.CyclingInterval
	case models.MotionVehicle:
		return p.cfg.VehicleInterval
	default:
		return p.cfg.UnknownInterval
	}
}

// adjustedInterval stretches the base interval as the battery drains. The
// low band clamps to the low-battery floor instead of multiplying.
func (p *IntervalPolicy) adjustedInterval(motion models.MotionState, band models.BatteryBand) time.Duration {
	base := p.baseInterval(motion)

	switch band {
	case models.BatteryMedium:
		return time.Duration(float64(base) * p.cfg.MediumBatteryFactor)
	case models.BatteryLow:
		if base < p.cfg.LowBatteryFloor {
			return p.cfg.LowBatteryFloor
		}
		return base
	default:
		return base
	}
}
