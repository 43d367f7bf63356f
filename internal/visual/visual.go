// Package visual implements the visualization surface spec.md scopes
// out by contract only ("a visualization surface that can receive drawn
// point sequences"). It is a WebSocket hub broadcasting drawn point
// sequences to any connected client, generalizing the teacher's
// internal/network WebSocket server (websocket.go's WebSocketListen /
// WebSocketBroadcast) into the narrower Graph::drawAdd / clear contract
// visualevo.cpp exposes to the evolutionary loop.
package visual

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client is one connected viewer.
type client struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// message is the wire format pushed to every client: either a point
// sequence ("add") or a request to clear the plot ("clear"), mirroring
// visualevo.cpp's own two-operation Graph contract.
type message struct {
	Type   string       `json:"type"`
	Label  string       `json:"label,omitempty"`
	Points [][2]float64 `json:"points,omitempty"`
}

// Hub accepts WebSocket clients at one address and broadcasts drawn
// point sequences to all of them. It implements evo.Visualizer.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*client
	upgrader   websocket.Upgrader
	server     *http.Server
	clearEvery int
	sinceClear int
}

// NewHub creates a Hub that emits a "clear" message automatically every
// clearEvery DrawAdd calls (0 disables automatic clearing, matching the
// original's periodic-clear-count knob).
func NewHub(clearEvery int) *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		clearEvery: clearEvery,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start begins serving WebSocket upgrades at addr in the background,
// grounded on the teacher's WebSocketListen (ListenAndServe spawned in
// its own goroutine, errors surfaced only via the accept loop failing
// silently on a closed server).
func (h *Hub) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleUpgrade)
	h.server = &http.Server{Addr: addr, Handler: mux}
	go h.server.ListenAndServe()
	return nil
}

func (h *Hub) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: fmt.Sprintf("visual_%d", time.Now().UnixNano()), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	go h.readLoop(c)
}

// readLoop drains (and discards) client frames purely to detect
// disconnects; the hub is a one-way broadcaster.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.conn.Close()
}

// DrawAdd broadcasts a labelled point sequence to every connected
// client, clearing first when the configured clear count is reached
// (visualevo.cpp "drawAdd ... periodic clear-count").
func (h *Hub) DrawAdd(label string, points [][2]float64) {
	h.mu.Lock()
	h.sinceClear++
	needsClear := h.clearEvery > 0 && h.sinceClear >= h.clearEvery
	if needsClear {
		h.sinceClear = 0
	}
	h.mu.Unlock()

	if needsClear {
		h.broadcast(message{Type: "clear"})
	}
	h.broadcast(message{Type: "add", Label: label, Points: points})
}

func (h *Hub) broadcast(msg message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.mu.Lock()
		if !c.closed {
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.closed = true
			}
		}
		c.mu.Unlock()
	}
}

// Close disconnects every client and stops the HTTP server.
func (h *Hub) Close() error {
	h.mu.Lock()
	for _, c := range h.clients {
		c.conn.Close()
	}
	h.clients = make(map[string]*client)
	h.mu.Unlock()
	if h.server != nil {
		return h.server.Close()
	}
	return nil
}
