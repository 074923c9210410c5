package services

import (
	"sync"

	"trackpulse/models"
	"trackpulse/utils"

	"github.com/sirupsen/logrus"
)

// Registry is the explicit home for per-device schedulers and the tracking
// slot. Constructed at process start and passed around by handle; there is
// no process-wide mutable static anywhere in the engine.
type Registry struct {
	mu         sync.RWMutex
	schedulers map[string]*ReportScheduler
	tracking   *TrackingService
}

func NewRegistry() *Registry {
	return &Registry{
		schedulers: make(map[string]*ReportScheduler),
	}
}

// Register adds and starts a device scheduler.
func (r *Registry) Register(deviceID string, scheduler *ReportScheduler) error {
	r.mu.Lock()
	if _, exists := r.schedulers[deviceID]; exists {
		r.mu.Unlock()
		return utils.NewServiceErrorWithDetails(utils.ErrCodeConflict, "device already registered", deviceID)
	}
	r.schedulers[deviceID] = scheduler
	r.mu.Unlock()

	return scheduler.Start()
}

// Deregister stops and removes a device scheduler. The stop is awaited.
func (r *Registry) Deregister(deviceID string) error {
	r.mu.Lock()
	scheduler, exists := r.schedulers[deviceID]
	delete(r.schedulers, deviceID)
	r.mu.Unlock()

	if !exists {
		return nil
	}
	return scheduler.Stop()
}

// Scheduler looks up the scheduler for a device.
func (r *Registry) Scheduler(deviceID string) (*ReportScheduler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scheduler, ok := r.schedulers[deviceID]
	return scheduler, ok
}

// CadenceController implements CadenceResolver for the tracking service.
func (r *Registry) CadenceController(deviceID string) (CadenceController, bool) {
	scheduler, ok := r.Scheduler(deviceID)
	if !ok {
		return nil, false
	}
	return scheduler, true
}

// RequestReport fires a manual evaluation on a device's scheduler.
// Returns false when the device is not registered.
func (r *Registry) RequestReport(deviceID string) bool {
	scheduler, ok := r.Scheduler(deviceID)
	if !ok {
		return false
	}
	scheduler.Trigger(models.TriggerManual)
	return true
}

// SetTracking attaches the tracking service so Shutdown can tear it down.
func (r *Registry) SetTracking(tracking *TrackingService) {
	r.mu.Lock()
	r.tracking = tracking
	r.mu.Unlock()
}

// Tracking returns the attached tracking service, if any.
func (r *Registry) Tracking() *TrackingService {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tracking
}

// Devices lists the registered device IDs.
func (r *Registry) Devices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.schedulers))
	for id := range r.schedulers {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown ends the tracking session and stops every scheduler. All stops
// are awaited; no timer outlives this call.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	tracking := r.tracking
	schedulers := make([]*ReportScheduler, 0, len(r.schedulers))
	for _, s := range r.schedulers {
		schedulers = append(schedulers, s)
	}
	r.schedulers = make(map[string]*ReportScheduler)
	r.mu.Unlock()

	if tracking != nil {
		tracking.Shutdown()
	}
	for _, s := range schedulers {
		if err := s.Stop(); err != nil {
			logrus.Errorf("Failed to stop scheduler: %v", err)
		}
	}

	logrus.Info("Registry shutdown complete")
}
