package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub stores and manages all active WebSocket connections of a
// single role. At most one connection per entity is tracked: a new
// connection for the same entity replaces (and closes) the previous one.
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.Mutex
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

// Add registers a new connection in the hub. An existing connection with
// the same entityID is closed and replaced (last connect wins).
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "add_ws_connection")

	if existing, ok := h.clients[newConn.entityID]; ok {
		h.l.Warn(ctx,
			"replacing existing connection",
			"entity_id", existing.entityID,
		)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx,
				"failed to close existing conn",
				"entity_id", existing.entityID,
				"err", err.Error(),
			)
		}
	}

	h.clients[newConn.entityID] = newConn

	return nil
}

// Delete removes and closes the connection identified by entityID.
// When the tracked connection is not conn (it has already been replaced by
// a reconnect), the current mapping is left alone and only conn is closed.
func (h *ConnectionHub) Delete(entityID uuid.UUID, conn *Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.clients[entityID]
	if !ok {
		return ErrConnIsNotFound
	}

	if conn != nil && current != conn {
		_ = conn.Close()
		return nil
	}

	if err := current.Close(); err != nil {
		ctx := wrap.WithAction(context.Background(), "ws_connection_delete")
		h.l.Warn(ctx,
			"failed to close conn",
			"entity_id", current.entityID,
			"err", err.Error(),
		)
	}

	delete(h.clients, entityID)

	return nil
}

// SendTo sends a message to a specific client by ID.
// Returns ErrConnIsNotFound when there is no live connection.
func (h *ConnectionHub) SendTo(id uuid.UUID, msg any) error {
	h.mu.Lock()
	conn, ok := h.clients[id]
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	return conn.Send(msg)
}

// GetConn returns the connection for the given entity, if present.
func (h *ConnectionHub) GetConn(id uuid.UUID) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return conn, nil
}

// Len returns the number of live connections.
func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close closes every websocket connection in the hub.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		clients = append(clients, conn)
	}
	h.clients = make(map[uuid.UUID]*Conn)
	h.mu.Unlock()

	// close outside the lock
	for _, conn := range clients {
		_ = conn.Close()
	}

	h.l.Info(ctx, "all websocket connections closed")
}
