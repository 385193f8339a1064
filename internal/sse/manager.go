package sse

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/novelly/novelly-server/internal/id"
	"github.com/novelly/novelly-server/internal/metrics"
)

const (
	eventQueueSize    = 1000
	clientBufferSize  = 100
	replayBufferSize  = 256
	heartbeatInterval = 30 * time.Second
)

// Subscription describes what a client wants to receive.
type Subscription struct {
	// UserID scopes user events. Broadcast events reach every user.
	UserID string
	// Topics limits delivery to these event topics. Empty means all.
	Topics []string
	// LastEventID replays buffered events with a higher sequence number.
	LastEventID uint64
}

// Client is one connected event stream.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	UserID      string

	topics map[string]bool
}

// wants reports whether e should be delivered to c. Heartbeats always are.
func (c *Client) wants(e Event) bool {
	if e.UserID != "" && e.UserID != c.UserID {
		return false
	}
	if e.Type == EventHeartbeat || len(c.topics) == 0 {
		return true
	}
	return c.topics[e.Topic()]
}

// Manager fans events out to connected clients. Events are queued by Emit
// and delivered by the loop in Serve, which runs under the supervisor.
type Manager struct {
	logger *slog.Logger
	events chan Event
	seq    atomic.Uint64

	mu      sync.RWMutex
	clients map[string]*Client
	// replay is a ring of recently delivered events, oldest first.
	replay []Event

	closeMu sync.RWMutex
	closed  bool

	running sync.WaitGroup
}

// NewManager creates a Manager. Call Serve to start delivery.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:  logger,
		events:  make(chan Event, eventQueueSize),
		clients: make(map[string]*Client),
		replay:  make([]Event, 0, replayBufferSize),
	}
}

// Serve implements suture.Service. It delivers queued events and sends a
// heartbeat every 30s until ctx is canceled or the manager is shut down.
func (m *Manager) Serve(ctx context.Context) error {
	m.running.Add(1)
	defer m.running.Done()

	m.logger.Info("event delivery started")
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-m.events:
			if !ok {
				return nil
			}
			m.deliver(evt)
		case <-ticker.C:
			m.deliver(NewHeartbeatEvent())
		case <-ctx.Done():
			m.logger.Info("event delivery stopped")
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (m *Manager) String() string {
	return "sse-manager"
}

// Shutdown stops accepting events, delivers what is still queued until ctx
// expires, then closes every client stream.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.events)
	m.closeMu.Unlock()

	m.running.Wait()

	pending := len(m.events)
drain:
	for {
		select {
		case evt, ok := <-m.events:
			if !ok {
				break drain
			}
			m.deliver(evt)
		case <-ctx.Done():
			m.logger.Warn("event drain timed out", slog.Int("pending", len(m.events)))
			break drain
		}
	}

	m.mu.Lock()
	for clientID, c := range m.clients {
		close(c.Done)
		close(c.EventChan)
		delete(m.clients, clientID)
	}
	m.mu.Unlock()
	metrics.SSEClients.Set(0)

	m.logger.Info("event manager shut down", slog.Int("drained", pending))
	return nil
}

// Emit queues an event for delivery. Values that are not an Event are
// logged and dropped, as is anything emitted after Shutdown.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("dropping value that is not an event", slog.Any("value", event))
		return
	}

	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.events <- evt:
	default:
		m.logger.Error("event queue full, dropping event",
			slog.String("event_type", string(evt.Type)))
	}
}

// Connect registers a client for sub. Buffered events newer than
// sub.LastEventID that the client wants are queued before it is returned.
func (m *Manager) Connect(sub Subscription) (*Client, error) {
	clientID, err := id.Generate(id.SSEClient)
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:          clientID,
		UserID:      sub.UserID,
		EventChan:   make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}
	if len(sub.Topics) > 0 {
		c.topics = make(map[string]bool, len(sub.Topics))
		for _, t := range sub.Topics {
			c.topics[t] = true
		}
	}

	m.mu.Lock()
	replayed := 0
	if sub.LastEventID > 0 {
		for _, evt := range m.replay {
			if evt.Seq <= sub.LastEventID || !c.wants(evt) {
				continue
			}
			if replayed == clientBufferSize {
				break
			}
			c.EventChan <- evt
			replayed++
		}
	}
	m.clients[c.ID] = c
	total := len(m.clients)
	m.mu.Unlock()
	metrics.SSEClients.Set(float64(total))

	m.logger.Info("client connected",
		slog.String("client_id", c.ID),
		slog.String("user_id", c.UserID),
		slog.Int("replayed", replayed),
		slog.Int("total_clients", total))
	return c, nil
}

// Disconnect removes a client. Unknown IDs are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	total := len(m.clients)
	m.mu.Unlock()
	metrics.SSEClients.Set(float64(total))

	close(c.Done)
	close(c.EventChan)

	m.logger.Info("client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(c.ConnectedAt)),
		slog.Int("total_clients", total))
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// deliver numbers evt, records it for replay and hands it to every client
// that wants it. A client whose buffer is full misses the event.
func (m *Manager) deliver(evt Event) {
	evt.Seq = m.seq.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if evt.Type != EventHeartbeat {
		if len(m.replay) == replayBufferSize {
			copy(m.replay, m.replay[1:])
			m.replay = m.replay[:replayBufferSize-1]
		}
		m.replay = append(m.replay, evt)
	}

	var delivered, dropped int
	for _, c := range m.clients {
		if !c.wants(evt) {
			continue
		}
		select {
		case c.EventChan <- evt:
			delivered++
		default:
			dropped++
		}
	}

	if dropped > 0 {
		m.logger.Warn("slow clients missed event",
			slog.String("event_type", string(evt.Type)),
			slog.Int("dropped", dropped))
	}
	if evt.Type != EventHeartbeat {
		m.logger.Debug("event delivered",
			slog.String("event_type", string(evt.Type)),
			slog.Uint64("seq", evt.Seq),
			slog.Int("delivered", delivered))
	}
}
