package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"zigbee-go-setup/internal/setup"
)

// EventStream is the WebSocket side of the setup activity stream. Events are
// serialized once per emission and the bytes fanned out to every connected
// client; clients only listen.
type EventStream struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool

	events   chan setup.Event
	done     chan struct{}
	stopOnce sync.Once
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newEventStream(logger *slog.Logger) *EventStream {
	return &EventStream{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
		events:  make(chan setup.Event, 256),
		done:    make(chan struct{}),
	}
}

// Publish queues an event for delivery. When the queue is full the event is
// dropped; the stream is live telemetry, not a ledger.
func (es *EventStream) Publish(event setup.Event) {
	select {
	case es.events <- event:
	case <-es.done:
	default:
		es.logger.Warn("event stream backlog full, dropping event", "type", event.Type)
	}
}

// Run drains the event queue until Stop. Call once, in its own goroutine.
func (es *EventStream) Run() {
	for {
		select {
		case <-es.done:
			es.mu.Lock()
			es.closed = true
			for client := range es.clients {
				delete(es.clients, client)
				close(client.send)
			}
			es.mu.Unlock()
			return

		case event := <-es.events:
			es.deliver(event)
		}
	}
}

// Stop shuts the stream down and hangs up on all clients. Safe to call more
// than once.
func (es *EventStream) Stop() {
	es.stopOnce.Do(func() {
		close(es.done)
	})
}

func (es *EventStream) deliver(event setup.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		es.logger.Error("event marshal", "type", event.Type, "err", err)
		return
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	for client := range es.clients {
		select {
		case client.send <- data:
		default:
			// Send buffer full: the client is not keeping up with the stream.
			delete(es.clients, client)
			close(client.send)
			es.logger.Warn("ws client evicted (too slow)", "event", event.Type)
		}
	}
}

// attach registers a client. It reports false once the stream has shut down.
func (es *EventStream) attach(client *wsClient) bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.closed {
		return false
	}
	es.clients[client] = struct{}{}
	es.logger.Debug("ws client connected", "total", len(es.clients))
	return true
}

// detach removes a client if it is still registered. Safe to call after the
// stream evicted or hung up on the client.
func (es *EventStream) detach(client *wsClient) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if _, ok := es.clients[client]; ok {
		delete(es.clients, client)
		close(client.send)
	}
	es.logger.Debug("ws client disconnected", "total", len(es.clients))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}
	// If no allowedOrigins configured, nhooyr defaults to same-origin check.

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}

	conn.SetReadLimit(4096)

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}
	if !s.stream.attach(client) {
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}

	go client.writeLoop()
	client.readLoop(r.Context())
	s.stream.detach(client)
}

// writeLoop forwards stream bytes to the connection until the send channel
// closes (detach, eviction or stream shutdown).
func (c *wsClient) writeLoop() {
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop blocks until the peer goes away. Incoming messages are ignored;
// the stream is one-way.
func (c *wsClient) readLoop(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
