package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/model"
	"github.com/example/ec-checkout/internal/notification"
)

const (
	writeWait = 10 * time.Second

	// EventOrderStatus names the frame carrying a status update.
	EventOrderStatus = "orderStatusUpdate"
)

var ErrNotConnected = errors.New("user has no live connection")

// Frame is the JSON message written to clients.
type Frame struct {
	Event string            `json:"event"`
	Data  model.StatusEvent `json:"data"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(event model.StatusEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(Frame{Event: EventOrderStatus, Data: event})
}

// userLocks hands out one mutex per user, dropped once nobody holds it.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (u *userLocks) lock(userID string) (unlock func()) {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &userLock{}
		u.locks[userID] = l
	}
	l.refs++
	u.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.locks, userID)
		}
		u.mu.Unlock()
	}
}

// Hub tracks live websocket connections per user. A user may hold several
// connections; an event is written to all of them. Deliveries to one user
// are serialized, so a new connection receives its queued events before
// any live event.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	delivery userLocks
	queue    notification.PendingQueue
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewHub(queue notification.PendingQueue, log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:  make(map[string]map[*client]struct{}),
		delivery: userLocks{locks: make(map[string]*userLock)},
		queue:    queue,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Emit writes event to every connection of userID. It succeeds when at
// least one connection accepted the frame.
func (h *Hub) Emit(_ context.Context, userID string, event model.StatusEvent) error {
	unlock := h.delivery.lock(userID)
	defer unlock()
	return h.emit(userID, event)
}

func (h *Hub) emit(userID string, event model.StatusEvent) error {
	conns := h.snapshot(userID)
	if len(conns) == 0 {
		return ErrNotConnected
	}

	var lastErr error
	delivered := 0
	for _, c := range conns {
		if err := c.write(event); err != nil {
			lastErr = err
			h.remove(userID, c)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return lastErr
	}
	return nil
}

// ServeHTTP upgrades the request to a websocket for the user named by the
// userId query parameter and flushes anything queued while they were away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if !domain.ValidID(userID) {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{conn: conn}
	logger := h.log.WithField("user_id", userID)

	unlock := h.delivery.lock(userID)
	h.add(userID, c)
	logger.Debug("websocket connected")
	h.flushPending(r.Context(), userID, c.write, logger)
	unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(userID, c)
	logger.Debug("websocket disconnected")
}

// Flush delivers whatever is queued for userID to its live connections. It
// picks up events queued after a connection had already drained the queue.
func (h *Hub) Flush(ctx context.Context, userID string) {
	unlock := h.delivery.lock(userID)
	defer unlock()
	if !h.IsConnected(userID) {
		return
	}
	h.flushPending(ctx, userID, func(event model.StatusEvent) error {
		return h.emit(userID, event)
	}, h.log.WithField("user_id", userID))
}

// flushPending must be called with the user's delivery lock held.
func (h *Hub) flushPending(ctx context.Context, userID string, write func(model.StatusEvent) error, logger logrus.FieldLogger) {
	events, err := h.queue.Drain(ctx, userID)
	if err != nil {
		logger.WithError(err).Error("drain pending notifications")
		return
	}
	for i, event := range events {
		if err := write(event); err != nil {
			logger.WithError(err).Warn("delivering pending notification failed, requeueing")
			for _, rest := range events[i:] {
				if err := h.queue.Enqueue(ctx, userID, rest); err != nil {
					logger.WithError(err).Error("requeue pending notification")
				}
			}
			return
		}
	}
	if len(events) > 0 {
		logger.WithField("count", len(events)).Info("delivered pending notifications")
	}
}

func (h *Hub) add(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(userID string, c *client) {
	h.mu.Lock()
	set, ok := h.clients[userID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, userID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

func (h *Hub) snapshot(userID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		conns = append(conns, c)
	}
	return conns
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			c.conn.Close()
		}
		delete(h.clients, userID)
	}
}
