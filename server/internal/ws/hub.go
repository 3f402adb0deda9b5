package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fractalscope/fractalscope/server/internal/api"
	"github.com/fractalscope/fractalscope/server/internal/calibration"
	"github.com/fractalscope/fractalscope/server/internal/form"
	"github.com/fractalscope/fractalscope/server/internal/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxFrameBytes bounds a single client frame.
	maxFrameBytes = 1024
)

// Client and server event names.
const (
	EventInput     = "input"
	EventCalculate = "calculate"
	EventState     = "state"
	EventError     = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins. Apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ErrorData is the payload of an "error" frame. It reports protocol
// problems; validation failures travel inside the state view.
type ErrorData struct {
	Error string `json:"error"`
}

// inbound is a frame received from a client.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub owns one calculator form per WebSocket connection and pushes the form
// state back to its client after every change.
type Hub struct {
	cal        *calibration.Store
	rec        *metrics.Recorder
	maxClients int
	reload     chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex // guards form
	form form.Form
}

// New creates a Hub that calculates with the estimator in cal. maxClients
// of zero means unlimited. rec may be nil.
func New(cal *calibration.Store, rec *metrics.Recorder, maxClients int) *Hub {
	h := &Hub{
		cal:        cal,
		rec:        rec,
		maxClients: maxClients,
		reload:     make(chan struct{}, 1),
		clients:    make(map[*client]struct{}),
	}
	cal.OnChange(func(calibration.Snapshot) {
		select {
		case h.reload <- struct{}{}:
		default:
		}
	})
	return h
}

// Run refreshes every open form when the threshold changes. It blocks until
// ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.reload:
			h.refreshAll()
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The current (empty) form state is sent immediately on connect. Blocks until
// the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The limit is checked before the upgrade so the client gets a plain 503.
	// Concurrent upgrades may overshoot it by a few connections.
	if h.maxClients > 0 && h.Count() >= h.maxClients {
		http.Error(w, "too many live clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	h.pushState(c)

	go c.writePump()
	h.readPump(c) // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// deliver queues data for c. A client whose buffer is full is dropped.
func (h *Hub) deliver(c *client, data []byte) {
	h.mu.RLock()
	full := false
	if _, ok := h.clients[c]; ok {
		select {
		case c.send <- data:
		default:
			full = true
		}
	}
	h.mu.RUnlock()

	if full {
		slog.Warn("ws: dropping slow client", "remote", c.conn.RemoteAddr().String())
		h.unregister(c)
	}
}

// handle applies one client frame to the client's form.
func (h *Hub) handle(c *client, raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		h.pushError(c, "invalid frame: "+err.Error())
		return
	}

	switch in.Event {
	case EventInput:
		var vals map[string]*api.FieldValue
		if err := json.Unmarshal(in.Data, &vals); err != nil {
			h.pushError(c, "invalid input: "+err.Error())
			return
		}
		upd := make(map[string]*string, len(vals))
		for k, v := range vals {
			if v != nil {
				s := string(*v)
				upd[k] = &s
			}
		}
		c.mu.Lock()
		err := c.form.Merge(upd)
		c.mu.Unlock()
		if err != nil {
			h.pushError(c, err.Error())
			return
		}

	case EventCalculate:
		// Load once so the calculation sees a single threshold.
		est := h.cal.Current()
		c.mu.Lock()
		out, err := c.form.Calculate(est)
		c.mu.Unlock()
		if h.rec != nil {
			h.rec.ObserveEstimate(metrics.SourceLive, out, err)
		}

	default:
		h.pushError(c, fmt.Sprintf("unknown event %q", in.Event))
		return
	}

	h.pushState(c)
}

func (h *Hub) pushState(c *client) {
	c.mu.Lock()
	view := c.form.View()
	c.mu.Unlock()
	h.push(c, Message{Event: EventState, Data: view})
}

func (h *Hub) pushError(c *client, msg string) {
	h.push(c, Message{Event: EventError, Data: ErrorData{Error: msg}})
}

func (h *Hub) push(c *client, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("ws: encode frame", "event", m.Event, "err", err)
		return
	}
	h.deliver(c, data)
}

// refreshAll reruns the last calculation of every form that holds a result
// with the current estimator and sends every client its state.
func (h *Hub) refreshAll() {
	est := h.cal.Current()

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.mu.Lock()
		c.form.Recalculate(est)
		c.mu.Unlock()
		h.pushState(c)
	}
	slog.Info("ws: forms refreshed", "clients", len(targets), "threshold", est.Threshold())
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client frames and control messages until the connection
// closes.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})
	for {
		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if typ != websocket.TextMessage {
			continue
		}
		h.handle(c, msg)
	}
}
