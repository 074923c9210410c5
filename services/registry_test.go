package services

import (
	"testing"

	"trackpulse/utils"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()
	defer registry.Shutdown()

	f := newSchedulerFixture()
	if err := registry.Register("dev-1", f.scheduler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, ok := registry.Scheduler("dev-1"); !ok {
		t.Error("registered scheduler not found")
	}
	if _, ok := registry.Scheduler("ghost"); ok {
		t.Error("lookup of an unregistered device succeeded")
	}
	if _, ok := registry.CadenceController("dev-1"); !ok {
		t.Error("cadence controller not resolved for registered device")
	}

	devices := registry.Devices()
	if len(devices) != 1 || devices[0] != "dev-1" {
		t.Errorf("Devices() = %v, want [dev-1]", devices)
	}
}

func TestRegistryDuplicateRegistrationConflicts(t *testing.T) {
	registry := NewRegistry()
	defer registry.Shutdown()

	first := newSchedulerFixture()
	second := newSchedulerFixture()

	registry.Register("dev-1", first.scheduler)
	err := registry.Register("dev-1", second.scheduler)
	if err == nil {
		t.Fatal("duplicate registration succeeded")
	}
	svcErr, ok := utils.GetServiceError(err)
	if !ok || svcErr.Code != utils.ErrCodeConflict {
		t.Errorf("error = %v, want code %s", err, utils.ErrCodeConflict)
	}
}

func TestRegistryRequestReport(t *testing.T) {
	registry := NewRegistry()
	defer registry.Shutdown()

	f := newSchedulerFixture()
	registry.Register("dev-1", f.scheduler)

	if !registry.RequestReport("dev-1") {
		t.Error("RequestReport for a registered device returned false")
	}
	if registry.RequestReport("ghost") {
		t.Error("RequestReport for an unregistered device returned true")
	}
}

func TestRegistryDeregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()

	f := newSchedulerFixture()
	registry.Register("dev-1", f.scheduler)

	if err := registry.Deregister("dev-1"); err != nil {
		t.Fatalf("Deregister() error = %v", err)
	}
	if err := registry.Deregister("dev-1"); err != nil {
		t.Fatalf("second Deregister() error = %v", err)
	}
	if _, ok := registry.Scheduler("dev-1"); ok {
		t.Error("deregistered scheduler still resolvable")
	}
}
