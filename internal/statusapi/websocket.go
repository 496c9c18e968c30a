package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"inputpipe/internal/metrics"
)

// DefaultMaxClients bounds concurrent HUD connections.
const DefaultMaxClients = 16

// Message is the envelope every websocket frame carries.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub fans status frames out to every connected HUD. Run owns the client
// set; everything else talks to it over channels.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	upgrader   websocket.Upgrader
	maxClients int
	log        *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub accepting origins that match one of the patterns
// (path.Match syntax, e.g. "http://localhost:*"). Requests without an
// Origin header come from non-browser clients and are accepted.
func NewHub(origins []string, maxClients int, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	h := &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		maxClients: maxClients,
		log:        log,
		stop:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if originAllowed(origin, origins) {
				return true
			}
			log.Warn("websocket origin rejected", zap.String("origin", origin))
			metrics.RecordRejected("origin")
			return false
		},
	}
	return h
}

func originAllowed(origin string, patterns []string) bool {
	if origin == "" {
		return true
	}
	for _, p := range patterns {
		if ok, _ := path.Match(p, origin); ok {
			return true
		}
	}
	return false
}

// Start launches the hub loop and the periodic status broadcast. Both exit
// on Stop or when ctx is done.
func (h *Hub) Start(ctx context.Context, ctrl Controller, interval time.Duration) {
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		h.run()
	}()
	go func() {
		defer h.wg.Done()
		h.broadcastLoop(ctx, ctrl, interval)
	}()
}

// run processes registrations and broadcasts until Stop.
func (h *Hub) run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			metrics.UpdateWSConnections(0)
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("hud connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("clients", count))
			metrics.UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.drop(conn)

		case message := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()
			for _, conn := range failed {
				h.drop(conn)
			}
			metrics.IncrementWSMessages()
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateWSConnections(count)
}

// Stop disconnects every client and waits for Run and the readers to exit.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.wg.Wait()
}

// Broadcast queues an event for every client. Drops the frame when the
// queue is full.
func (h *Hub) Broadcast(event string, data any) {
	msg, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.log.Error("broadcast marshal", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastLoop publishes the controller's status every interval while
// clients are connected.
func (h *Hub) broadcastLoop(ctx context.Context, ctrl Controller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			h.Broadcast("status", ctrl.Status())
		}
	}
}

// HandleWebSocket upgrades a HUD connection. Clients only listen; anything
// they send is discarded.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.ClientCount() >= h.maxClients {
		metrics.RecordRejected("ws_limit")
		writeError(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.wg.Add(1)
	select {
	case h.register <- conn:
	case <-h.stop:
		conn.Close()
		h.wg.Done()
		return
	}

	go func() {
		defer h.wg.Done()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		select {
		case h.unregister <- conn:
		case <-h.stop:
		}
	}()
}
