package websocket

import (
	"context"
	"sync"
	"time"

	"trackpulse/models"

	"github.com/sirupsen/logrus"
)

// Hub fans live position reports and boundary events out to connected
// observers. Observers subscribe per device; an observer with no
// subscriptions receives nothing.
type Hub struct {
	clients  map[*Client]bool
	watchers map[string]map[*Client]bool // deviceID -> observers

	register   chan *Client
	unregister chan *Client
	broadcast  chan WSMessage

	stats      HubStats
	statsMutex sync.RWMutex

	mutex  sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

type HubStats struct {
	TotalConnections  int64     `json:"totalConnections"`
	ActiveConnections int       `json:"activeConnections"`
	WatchedDevices    int       `json:"watchedDevices"`
	MessagesSent      int64     `json:"messagesSent"`
	StartTime         time.Time `json:"startTime"`
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]bool),
		watchers:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan WSMessage, 256),
		stats: HubStats{
			StartTime: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (h *Hub) Run() {
	logrus.Info("WebSocket hub started")

	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.dispatch(message)

		case <-h.ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Shutdown() {
	h.cancel()
}

// BroadcastPosition pushes a fresh position report to that device's observers.
func (h *Hub) BroadcastPosition(report models.PositionReport) {
	select {
	case h.broadcast <- newPositionMessage(report):
	default:
		logrus.Warn("Hub broadcast queue full, dropping position frame")
	}
}

// BroadcastBoundaryEvent pushes a boundary crossing to the entity's observers.
func (h *Hub) BroadcastBoundaryEvent(event models.BoundaryEvent) {
	select {
	case h.broadcast <- newBoundaryEventMessage(event):
	default:
		logrus.Warn("Hub broadcast queue full, dropping boundary event")
	}
}

// Subscribe attaches a client to a device's feed.
func (h *Hub) Subscribe(client *Client, deviceID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.watchers[deviceID] == nil {
		h.watchers[deviceID] = make(map[*Client]bool)
	}
	h.watchers[deviceID][client] = true

	logrus.Debugf("Observer %s subscribed to device %s", client.id, deviceID)
}

// Unsubscribe detaches a client from a device's feed.
func (h *Hub) Unsubscribe(client *Client, deviceID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if observers, ok := h.watchers[deviceID]; ok {
		delete(observers, client)
		if len(observers) == 0 {
			delete(h.watchers, deviceID)
		}
	}
}

func (h *Hub) GetStats() HubStats {
	h.statsMutex.RLock()
	defer h.statsMutex.RUnlock()

	stats := h.stats

	h.mutex.RLock()
	stats.ActiveConnections = len(h.clients)
	stats.WatchedDevices = len(h.watchers)
	h.mutex.RUnlock()

	return stats
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	h.mutex.Unlock()

	h.statsMutex.Lock()
	h.stats.TotalConnections++
	h.statsMutex.Unlock()

	logrus.Debugf("Observer %s connected", client.id)
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		for deviceID, observers := range h.watchers {
			delete(observers, client)
			if len(observers) == 0 {
				delete(h.watchers, deviceID)
			}
		}
		close(client.send)
	}
	h.mutex.Unlock()

	logrus.Debugf("Observer %s disconnected", client.id)
}

func (h *Hub) dispatch(message WSMessage) {
	h.mutex.RLock()
	observers := h.watchers[message.DeviceID]
	targets := make([]*Client, 0, len(observers))
	for client := range observers {
		targets = append(targets, client)
	}
	h.mutex.RUnlock()

	var sent int64
	for _, client := range targets {
		select {
		case client.send <- message:
			sent++
		default:
			// Slow observer: drop the frame, not the connection.
		}
	}

	if sent > 0 {
		h.statsMutex.Lock()
		h.stats.MessagesSent += sent
		h.statsMutex.Unlock()
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.watchers = make(map[string]map[*Client]bool)

	logrus.Info("WebSocket hub stopped")
}
