package workers

import (
	"testing"
)

type mockTracking struct {
	startFn     func(targetID, requesterID string) error
	heartbeatFn func(targetID, requesterID string) error
	stopFn      func(targetID string) error
}

func (m *mockTracking) Start(targetID, requesterID string) error {
	if m.startFn != nil {
		return m.startFn(targetID, requesterID)
	}
	return nil
}

func (m *mockTracking) Heartbeat(targetID, requesterID string) error {
	if m.heartbeatFn != nil {
		return m.heartbeatFn(targetID, requesterID)
	}
	return nil
}

func (m *mockTracking) Stop(targetID string) error {
	if m.stopFn != nil {
		return m.stopFn(targetID)
	}
	return nil
}

type mockRequester struct {
	requestFn func(deviceID string) bool
}

func (m *mockRequester) RequestReport(deviceID string) bool {
	if m.requestFn != nil {
		return m.requestFn(deviceID)
	}
	return true
}

func TestHandlePayloadDispatch(t *testing.T) {
	var started, stopped, heartbeats, requested []string

	tracking := &mockTracking{
		startFn: func(targetID, requesterID string) error {
			started = append(started, targetID+"/"+requesterID)
			return nil
		},
		heartbeatFn: func(targetID, requesterID string) error {
			heartbeats = append(heartbeats, targetID)
			return nil
		},
		stopFn: func(targetID string) error {
			stopped = append(stopped, targetID)
			return nil
		},
	}
	requester := &mockRequester{
		requestFn: func(deviceID string) bool {
			requested = append(requested, deviceID)
			return true
		},
	}

	ww := NewWakeWorker(nil, "wake", tracking, requester)

	ww.HandlePayload([]byte(`{"kind":"start_tracking","targetId":"dev-1","requesterId":"viewer-1"}`))
	ww.HandlePayload([]byte(`{"kind":"heartbeat","targetId":"dev-1","requesterId":"viewer-1"}`))
	ww.HandlePayload([]byte(`{"kind":"report_once","targetId":"dev-1"}`))
	ww.HandlePayload([]byte(`{"kind":"stop_tracking","targetId":"dev-1"}`))

	if len(started) != 1 || started[0] != "dev-1/viewer-1" {
		t.Errorf("starts = %v, want [dev-1/viewer-1]", started)
	}
	if len(heartbeats) != 1 {
		t.Errorf("heartbeats = %v, want one", heartbeats)
	}
	if len(requested) != 1 || requested[0] != "dev-1" {
		t.Errorf("report requests = %v, want [dev-1]", requested)
	}
	if len(stopped) != 1 {
		t.Errorf("stops = %v, want one", stopped)
	}

	stats := ww.GetStats()
	if stats.MessagesReceived != 4 || stats.MessagesDropped != 0 {
		t.Errorf("stats = %+v, want 4 received and none dropped", stats)
	}
}

func TestHandlePayloadDropsBadMessages(t *testing.T) {
	ww := NewWakeWorker(nil, "wake", &mockTracking{}, &mockRequester{})

	payloads := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"kind":"teleport","targetId":"dev-1"}`),
		[]byte(`{"kind":"start_tracking"}`), // missing target
		[]byte(`{}`),
	}
	for _, p := range payloads {
		ww.HandlePayload(p)
	}

	stats := ww.GetStats()
	if stats.MessagesReceived != 4 {
		t.Errorf("MessagesReceived = %d, want 4", stats.MessagesReceived)
	}
	if stats.MessagesDropped != 4 {
		t.Errorf("MessagesDropped = %d, want 4", stats.MessagesDropped)
	}
	if stats.StartsHandled != 0 {
		t.Errorf("StartsHandled = %d, want 0", stats.StartsHandled)
	}
}

func TestHandlePayloadDuplicatesAreSafe(t *testing.T) {
	starts := 0
	tracking := &mockTracking{
		startFn: func(targetID, requesterID string) error {
			starts++
			return nil
		},
	}
	ww := NewWakeWorker(nil, "wake", tracking, &mockRequester{})

	// The push transport can redeliver; the worker just dispatches and the
	// tracking layer's idempotency absorbs the duplicates.
	payload := []byte(`{"kind":"start_tracking","targetId":"dev-1","requesterId":"viewer-1"}`)
	ww.HandlePayload(payload)
	ww.HandlePayload(payload)
	ww.HandlePayload(payload)

	if starts != 3 {
		t.Errorf("starts = %d, want every delivery forwarded", starts)
	}
	if ww.GetStats().StartsHandled != 3 {
		t.Errorf("StartsHandled = %d, want 3", ww.GetStats().StartsHandled)
	}
}

func TestHandlePayloadUnknownDeviceReportDropped(t *testing.T) {
	requester := &mockRequester{requestFn: func(deviceID string) bool { return false }}
	ww := NewWakeWorker(nil, "wake", &mockTracking{}, requester)

	ww.HandlePayload([]byte(`{"kind":"report_once","targetId":"ghost"}`))

	stats := ww.GetStats()
	if stats.ReportsRequested != 0 {
		t.Errorf("ReportsRequested = %d, want 0", stats.ReportsRequested)
	}
	if stats.MessagesDropped != 1 {
		t.Errorf("MessagesDropped = %d, want 1", stats.MessagesDropped)
	}
}
