package services

import (
	"context"
	"sync"
	"time"

	"trackpulse/config"
	"trackpulse/interfaces"
	"trackpulse/models"
	"trackpulse/utils"

	"github.com/sirupsen/logrus"
)

const (
	// Consecutive still evaluations before the device counts as
	// stationary-confirmed.
	stillConfirmThreshold = 3

	// How long the device must sit still before it counts as deep
	// stationary (parked overnight, left on a desk).
	deepStationaryAfter = 30 * time.Minute
)

// ReportScheduler owns the single report timer for one device. It sleeps
// until the timer fires or an external trigger arrives, consults the
// interval policy, invokes the Reporter when told to, and goes back to
// sleep on the suggested interval.
//
// All mutation of the device's report state happens on the scheduler's own
// loop goroutine; the Reporter call itself runs without the lock so a slow
// report never blocks concurrent activity updates.
type ReportScheduler struct {
	deviceID string
	cfg      config.SchedulerConfig

	policy    *IntervalPolicy
	reporter  interfaces.Reporter
	positions interfaces.PositionSource
	activity  interfaces.ActivityProvider
	power     interfaces.PowerMonitor

	mu          sync.Mutex
	state       models.DeviceReportState
	override    time.Duration // 0 = policy-driven cadence
	wifiPending bool
	deferred    models.TriggerReason // trigger held back by the min-report gap
	lastDecide  models.ReportDecision

	triggerCh chan models.TriggerReason
	rearmCh   chan struct{}

	isRunning bool
	runMu     sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	now func() time.Time
}

func NewReportScheduler(
	deviceID string,
	cfg config.SchedulerConfig,
	policy *IntervalPolicy,
	reporter interfaces.Reporter,
	positions interfaces.PositionSource,
	activity interfaces.ActivityProvider,
	power interfaces.PowerMonitor,
) *ReportScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &ReportScheduler{
		deviceID:  deviceID,
		cfg:       cfg,
		policy:    policy,
		reporter:  reporter,
		positions: positions,
		activity:  activity,
		power:     power,
		state: models.DeviceReportState{
			DeviceID:   deviceID,
			LastMotion: models.MotionUnknown,
		},
		triggerCh: make(chan models.TriggerReason, 16),
		rearmCh:   make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

func (rs *ReportScheduler) Start() error {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	if rs.isRunning {
		return nil
	}
	rs.isRunning = true

	rs.wg.Add(1)
	go rs.run()

	logrus.Infof("Report scheduler started for device %s", rs.deviceID)
	return nil
}

// Stop cancels the loop and waits for it. Safe to call more than once;
// an in-flight report is cancelled and will not mutate state.
func (rs *ReportScheduler) Stop() error {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	if !rs.isRunning {
		return nil
	}
	rs.isRunning = false

	rs.cancel()
	rs.wg.Wait()

	logrus.Infof("Report scheduler stopped for device %s", rs.deviceID)
	return nil
}

// Trigger requests an immediate re-evaluation, pre-empting the timer.
func (rs *ReportScheduler) Trigger(reason models.TriggerReason) {
	select {
	case rs.triggerCh <- reason:
	default:
		// Queue full: hold the trigger, the next tick picks it up.
		rs.mu.Lock()
		rs.deferred = reason
		rs.mu.Unlock()
		logrus.Warnf("Trigger queue full for device %s, deferring %s", rs.deviceID, reason)
	}
}

// NoteActivityChange is called when the activity provider confirms a new
// motion state. Only a significant change fires a re-evaluation.
func (rs *ReportScheduler) NoteActivityChange(from, to models.MotionState) {
	if !models.SignificantChange(from, to) {
		return
	}
	rs.Trigger(models.TriggerActivityChange)
}

// NoteWifiChange records a new Wi-Fi environment fingerprint. A changed
// fingerprint implies possible relocation and triggers a re-evaluation.
func (rs *ReportScheduler) NoteWifiChange(fingerprint string) {
	rs.mu.Lock()
	if rs.state.WifiFingerprint == fingerprint {
		rs.mu.Unlock()
		return
	}
	rs.state.WifiFingerprint = fingerprint
	rs.wifiPending = true
	rs.mu.Unlock()

	rs.Trigger(models.TriggerWifiChange)
}

// SetOverride installs a fixed high-frequency cadence (live tracking) and
// fires an immediate evaluation.
func (rs *ReportScheduler) SetOverride(interval time.Duration) {
	rs.mu.Lock()
	rs.override = interval
	rs.mu.Unlock()

	logrus.Infof("Override cadence %s installed for device %s", interval, rs.deviceID)
	rs.Trigger(models.TriggerManual)
}

// ClearOverride reverts to the policy-driven cadence.
func (rs *ReportScheduler) ClearOverride() {
	rs.mu.Lock()
	cleared := rs.override != 0
	rs.override = 0
	rs.mu.Unlock()

	if cleared {
		logrus.Infof("Override cadence cleared for device %s", rs.deviceID)
		select {
		case rs.rearmCh <- struct{}{}:
		default:
		}
	}
}

// State returns a copy of the device report state.
func (rs *ReportScheduler) State() models.DeviceReportState {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.state
}

// LastDecision returns the most recent policy decision.
func (rs *ReportScheduler) LastDecision() models.ReportDecision {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastDecide
}

func (rs *ReportScheduler) run() {
	defer rs.wg.Done()

	timer := time.NewTimer(rs.evaluate(models.TriggerManual))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			timer.Reset(rs.evaluate(models.TriggerPeriodic))

		case reason := <-rs.triggerCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(rs.evaluate(reason))

		case <-rs.rearmCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(rs.nextInterval())

		case <-rs.ctx.Done():
			return
		}
	}
}

// evaluate runs one policy pass and returns how long to sleep next.
func (rs *ReportScheduler) evaluate(reason models.TriggerReason) time.Duration {
	now := rs.now()

	rs.mu.Lock()

	// A trigger held back by the min-report gap takes precedence once its
	// gap has expired.
	if rs.deferred != "" && reason == models.TriggerPeriodic {
		reason = rs.deferred
		rs.deferred = ""
	}

	override := rs.override
	external := reason != models.TriggerPeriodic

	// Enforce the minimum inter-report gap for external triggers so rapid
	// signals cannot cause report storms. Deferred, not dropped. The live
	// tracking override is deliberately high-frequency and exempt.
	if external && override == 0 && !rs.state.LastReportedAt.IsZero() {
		sinceLast := now.Sub(rs.state.LastReportedAt)
		if sinceLast < rs.cfg.MinReportGap {
			rs.deferred = reason
			rs.mu.Unlock()
			logrus.Debugf("Trigger %s for device %s deferred %s by min report gap",
				reason, rs.deviceID, rs.cfg.MinReportGap-sinceLast)
			return rs.cfg.MinReportGap - sinceLast
		}
	}

	motion := rs.activity.Current()
	if motion == models.MotionStill {
		rs.state.ConsecutiveStill++
		if rs.state.StationarySince.IsZero() {
			rs.state.StationarySince = now
		}
	} else {
		rs.state.ConsecutiveStill = 0
		rs.state.StationarySince = time.Time{}
	}

	power := rs.power.Power()
	stationaryFor := rs.activity.StationaryFor(now)
	if stationaryFor == 0 {
		stationaryFor = rs.state.StationaryFor(now)
	}

	decision := rs.policy.Decide(PolicyInput{
		Motion:              motion,
		BatteryPct:          power.BatteryPct,
		IsCharging:          power.IsCharging,
		PowerSave:           power.PowerSave,
		WifiChanged:         rs.wifiPending,
		StationaryConfirmed: rs.state.ConsecutiveStill >= stillConfirmThreshold,
		DeepStationary:      stationaryFor >= deepStationaryAfter,
		Trigger:             reason,
	})
	rs.lastDecide = decision

	interval := decision.Interval
	shouldReport := decision.ShouldReport
	accuracy := models.AccuracyBalanced
	reportReason := decision.Reason

	if override > 0 {
		// Live tracking reports on every tick, at high accuracy.
		interval = override
		shouldReport = true
		accuracy = models.AccuracyHigh
		reportReason = "live_tracking"
	}

	if !shouldReport {
		rs.mu.Unlock()
		logrus.Debugf("Device %s skipping report (%s), next evaluation in %s",
			rs.deviceID, decision.Reason, interval)
		return interval
	}

	rs.wifiPending = false
	rs.mu.Unlock()

	rs.report(now, motion, power, accuracy, reportReason)
	return interval
}

// report fetches the current position and hands it to the Reporter. Runs
// without the state lock. A cancelled in-flight call must not mutate the
// device report state on its way out.
func (rs *ReportScheduler) report(now time.Time, motion models.MotionState, power models.PowerState, accuracy models.Accuracy, reason string) {
	ctx, cancel := context.WithTimeout(rs.ctx, rs.cfg.ReportTimeout)
	defer cancel()

	pos, err := rs.positions.Position(ctx, accuracy)
	if err != nil {
		logrus.Warnf("Device %s position unavailable: %v", rs.deviceID, err)
		return
	}

	report := models.PositionReport{
		ID:         utils.GenerateUUID(),
		DeviceID:   rs.deviceID,
		Position:   pos,
		Motion:     motion,
		BatteryPct: power.BatteryPct,
		IsCharging: power.IsCharging,
		Reason:     reason,
		ReportedAt: now,
	}

	if err := rs.reporter.Report(ctx, report); err != nil {
		// Logged, not retried out-of-band: the next natural tick tries again.
		logrus.Warnf("Device %s report failed: %v", rs.deviceID, err)
		return
	}

	if rs.ctx.Err() != nil {
		// Scheduler torn down while the report was in flight.
		return
	}

	rs.mu.Lock()
	rs.state.LastPosition = &pos
	rs.state.LastMotion = motion
	rs.state.LastReportedAt = now
	rs.mu.Unlock()

	logrus.Debugf("Device %s reported position (%s)", rs.deviceID, reason)
}

// nextInterval computes the sleep interval without reporting, used when
// the cadence changes out from under the timer.
func (rs *ReportScheduler) nextInterval() time.Duration {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.override > 0 {
		return rs.override
	}

	now := rs.now()
	power := rs.power.Power()
	motion := rs.activity.Current()
	stationaryFor := rs.activity.StationaryFor(now)

	decision := rs.policy.Decide(PolicyInput{
		Motion:              motion,
		BatteryPct:          power.BatteryPct,
		IsCharging:          power.IsCharging,
		PowerSave:           power.PowerSave,
		StationaryConfirmed: rs.state.ConsecutiveStill >= stillConfirmThreshold,
		DeepStationary:      stationaryFor >= deepStationaryAfter,
		Trigger:             models.TriggerPeriodic,
	})
	return decision.Interval
}
