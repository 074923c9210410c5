package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"trackpulse/config"
	"trackpulse/models"
)

type stubActivity struct {
	state      models.MotionState
	stationary time.Duration
}

func (s *stubActivity) Current() models.MotionState               { return s.state }
func (s *stubActivity) StationaryFor(now time.Time) time.Duration { return s.stationary }

type stubPositions struct {
	mu         sync.Mutex
	pos        models.Position
	err        error
	accuracies []models.Accuracy
}

func (s *stubPositions) Position(ctx context.Context, accuracy models.Accuracy) (models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accuracies = append(s.accuracies, accuracy)
	return s.pos, s.err
}

type stubPower struct {
	power models.PowerState
}

func (s *stubPower) Power() models.PowerState { return s.power }

type stubReporter struct {
	mu           sync.Mutex
	reports      []models.PositionReport
	err          error
	beforeReturn func()
}

func (s *stubReporter) Report(ctx context.Context, report models.PositionReport) error {
	s.mu.Lock()
	s.reports = append(s.reports, report)
	s.mu.Unlock()
	if s.beforeReturn != nil {
		s.beforeReturn()
	}
	return s.err
}

func (s *stubReporter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func (s *stubReporter) last() models.PositionReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[len(s.reports)-1]
}

type schedulerFixture struct {
	scheduler *ReportScheduler
	reporter  *stubReporter
	positions *stubPositions
	activity  *stubActivity
	power     *stubPower
	clock     time.Time
}

func newSchedulerFixture() *schedulerFixture {
	f := &schedulerFixture{
		reporter:  &stubReporter{},
		positions: &stubPositions{pos: models.Position{Latitude: 52.5, Longitude: 13.4}},
		activity:  &stubActivity{state: models.MotionWalking},
		power:     &stubPower{power: models.PowerState{BatteryPct: 90}},
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := config.SchedulerConfig{
		MinReportGap:     60 * time.Second,
		OverrideInterval: 5 * time.Second,
		ReportTimeout:    time.Second,
	}
	f.scheduler = NewReportScheduler("dev-1", cfg, NewIntervalPolicy(testPolicyConfig()),
		f.reporter, f.positions, f.activity, f.power)
	f.scheduler.now = func() time.Time { return f.clock }
	return f
}

func TestSchedulerEvaluateReports(t *testing.T) {
	f := newSchedulerFixture()

	interval := f.scheduler.evaluate(models.TriggerManual)

	if f.reporter.count() != 1 {
		t.Fatalf("reports = %d, want 1", f.reporter.count())
	}
	if interval != 10*time.Minute {
		t.Errorf("interval = %v, want the walking cadence", interval)
	}

	state := f.scheduler.State()
	if !state.LastReportedAt.Equal(f.clock) {
		t.Errorf("LastReportedAt = %v, want %v", state.LastReportedAt, f.clock)
	}
	if state.LastMotion != models.MotionWalking {
		t.Errorf("LastMotion = %v, want walking", state.LastMotion)
	}
}

func TestSchedulerMinGapDefersNotDrops(t *testing.T) {
	f := newSchedulerFixture()

	f.scheduler.evaluate(models.TriggerManual)

	// A second external trigger 20s later is inside the 60s gap.
	f.clock = f.clock.Add(20 * time.Second)
	remaining := f.scheduler.evaluate(models.TriggerManual)

	if f.reporter.count() != 1 {
		t.Fatalf("reports = %d, the gapped trigger must not report", f.reporter.count())
	}
	if remaining != 40*time.Second {
		t.Errorf("sleep = %v, want the 40s left of the gap", remaining)
	}

	// Once the gap has passed, the next tick delivers the held trigger.
	f.clock = f.clock.Add(50 * time.Second)
	f.scheduler.evaluate(models.TriggerPeriodic)

	if f.reporter.count() != 2 {
		t.Errorf("reports = %d, the deferred trigger was dropped", f.reporter.count())
	}

	f.scheduler.mu.Lock()
	deferred := f.scheduler.deferred
	f.scheduler.mu.Unlock()
	if deferred != "" {
		t.Errorf("deferred = %q, want cleared", deferred)
	}
}

func TestSchedulerReporterFailureKeepsSchedule(t *testing.T) {
	f := newSchedulerFixture()
	f.reporter.err = context.DeadlineExceeded

	interval := f.scheduler.evaluate(models.TriggerPeriodic)

	if interval != 10*time.Minute {
		t.Errorf("interval = %v, a failed report must not change the cadence", interval)
	}
	if !f.scheduler.State().LastReportedAt.IsZero() {
		t.Error("LastReportedAt was set by a failed report")
	}

	// The next tick simply tries again.
	f.reporter.err = nil
	f.clock = f.clock.Add(10 * time.Minute)
	f.scheduler.evaluate(models.TriggerPeriodic)
	if !f.scheduler.State().LastReportedAt.Equal(f.clock) {
		t.Error("retry on the next tick did not record the report")
	}
}

func TestSchedulerOverrideCadence(t *testing.T) {
	f := newSchedulerFixture()

	f.scheduler.SetOverride(2 * time.Second)
	interval := f.scheduler.evaluate(models.TriggerManual)

	if interval != 2*time.Second {
		t.Errorf("interval = %v, want the override cadence", interval)
	}
	if got := f.reporter.last().Reason; got != "live_tracking" {
		t.Errorf("Reason = %q, want live_tracking", got)
	}
	if got := f.positions.accuracies[0]; got != models.AccuracyHigh {
		t.Errorf("accuracy = %v, want high under the override", got)
	}

	// Overridden ticks ignore the min-report gap.
	f.clock = f.clock.Add(2 * time.Second)
	f.scheduler.evaluate(models.TriggerPeriodic)
	if f.reporter.count() != 2 {
		t.Errorf("reports = %d, want every override tick to report", f.reporter.count())
	}

	f.scheduler.ClearOverride()
	if got := f.scheduler.nextInterval(); got != 10*time.Minute {
		t.Errorf("nextInterval = %v, want the policy cadence back", got)
	}
}

func TestSchedulerCancelledReportDoesNotMutateState(t *testing.T) {
	f := newSchedulerFixture()
	f.reporter.beforeReturn = func() { f.scheduler.cancel() }

	f.scheduler.evaluate(models.TriggerManual)

	if f.reporter.count() != 1 {
		t.Fatalf("reports = %d, want 1", f.reporter.count())
	}
	if !f.scheduler.State().LastReportedAt.IsZero() {
		t.Error("a report finishing after teardown mutated the device state")
	}
}

func TestSchedulerWifiFingerprintDeduplication(t *testing.T) {
	f := newSchedulerFixture()
	f.activity.state = models.MotionStill

	f.scheduler.NoteWifiChange("ap-cluster-1")
	f.scheduler.NoteWifiChange("ap-cluster-1") // same environment, no-op

	triggers := 0
	for {
		select {
		case <-f.scheduler.triggerCh:
			triggers++
			continue
		default:
		}
		break
	}
	if triggers != 1 {
		t.Errorf("triggers = %d, want 1 for a repeated fingerprint", triggers)
	}

	f.scheduler.evaluate(models.TriggerWifiChange)
	if got := f.reporter.last().Reason; got != "wifi_environment_changed" {
		t.Errorf("Reason = %q, want wifi_environment_changed", got)
	}

	// The pending flag is consumed by the report.
	f.scheduler.mu.Lock()
	pending := f.scheduler.wifiPending
	f.scheduler.mu.Unlock()
	if pending {
		t.Error("wifiPending survived the report")
	}
}

func TestSchedulerInsignificantActivityChangeIgnored(t *testing.T) {
	f := newSchedulerFixture()

	f.scheduler.NoteActivityChange(models.MotionWalking, models.MotionRunning)

	select {
	case reason := <-f.scheduler.triggerCh:
		t.Errorf("adjacent-rank change fired trigger %s", reason)
	default:
	}

	f.scheduler.NoteActivityChange(models.MotionWalking, models.MotionStill)
	select {
	case reason := <-f.scheduler.triggerCh:
		if reason != models.TriggerActivityChange {
			t.Errorf("trigger = %s, want activity_change", reason)
		}
	default:
		t.Error("transition to still did not fire a trigger")
	}
}

func TestSchedulerStartStopLifecycle(t *testing.T) {
	f := newSchedulerFixture()
	f.scheduler.now = time.Now

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if err := f.scheduler.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := f.scheduler.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}

	// Triggers after teardown must not block or panic.
	f.scheduler.Trigger(models.TriggerManual)
}
