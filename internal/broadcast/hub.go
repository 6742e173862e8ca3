package broadcast

import (
	"fmt"
	"sync"

	"github.com/amoylab/workbench/internal/common/cnst"
	"go.uber.org/zap"
)

// Hub tracks the live connections of this server instance
type Hub struct {
	logger    *zap.Logger
	queueSize int
	mu        sync.RWMutex
	conns     map[string]*Conn
	closed    bool // set by CloseAll; Register fails afterwards
}

// NewHub creates a hub whose connections buffer up to queueSize frames each
func NewHub(logger *zap.Logger, queueSize int) *Hub {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Hub{
		logger:    logger.Named("broadcast.hub"),
		queueSize: queueSize,
		conns:     make(map[string]*Conn),
	}
}

// Register creates a connection for id
func (h *Hub) Register(id string) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, cnst.ErrHubClosed
	}
	if _, exists := h.conns[id]; exists {
		return nil, fmt.Errorf("%w: %s", cnst.ErrDuplicateConn, id)
	}
	conn := newConn(id, h.queueSize)
	h.conns[id] = conn
	h.logger.Debug("connection registered", zap.String("id", id))
	return conn, nil
}

// Unregister closes and removes id; unknown ids are ignored
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	conn, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if !ok {
		return
	}
	conn.Close()
	h.logger.Debug("connection unregistered", zap.String("id", id))
}

// Get returns the live connection for id
func (h *Hub) Get(id string) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[id]
	return conn, ok
}

// List returns a snapshot of all live connections
func (h *Hub) List() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every connection and refuses new ones
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	conns := h.conns
	h.conns = make(map[string]*Conn)
	h.mu.Unlock()

	for id, conn := range conns {
		conn.Close()
		h.logger.Info("closed connection", zap.String("id", id))
	}
}
