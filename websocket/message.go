package websocket

import (
	"time"

	"trackpulse/models"
)

// Frame types sent to observers.
const (
	WSTypePosition      = "position"
	WSTypeBoundaryEvent = "boundary_event"
	WSTypeSubscribed    = "subscribed"
	WSTypeError         = "error"
)

// Commands accepted from observers.
const (
	WSCmdSubscribe   = "subscribe"
	WSCmdUnsubscribe = "unsubscribe"
)

// WSMessage is one frame on the observer socket.
type WSMessage struct {
	Type      string      `json:"type"`
	DeviceID  string      `json:"deviceId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ClientCommand is what an observer sends up.
type ClientCommand struct {
	Action   string `json:"action"`
	DeviceID string `json:"deviceId"`
}

func newPositionMessage(report models.PositionReport) WSMessage {
	return WSMessage{
		Type:      WSTypePosition,
		DeviceID:  report.DeviceID,
		Data:      report,
		Timestamp: time.Now(),
	}
}

func newBoundaryEventMessage(event models.BoundaryEvent) WSMessage {
	return WSMessage{
		Type:      WSTypeBoundaryEvent,
		DeviceID:  event.EntityID,
		Data:      event,
		Timestamp: time.Now(),
	}
}
