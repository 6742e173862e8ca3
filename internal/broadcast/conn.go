package broadcast

import (
	"sync"

	"github.com/amoylab/workbench/internal/common/cnst"
)

// Conn is a live client connection as seen by the fan-out layer. Frames are
// queued without blocking and drained in order by the transport's writer.
type Conn struct {
	id     string
	mu     sync.RWMutex // protects closed and the queue close
	closed bool
	queue  chan []byte
}

func newConn(id string, queueSize int) *Conn {
	return &Conn{
		id:    id,
		queue: make(chan []byte, queueSize),
	}
}

// ID returns the connection identifier
func (c *Conn) ID() string {
	return c.id
}

// Queue returns the channel the transport writer drains. It is closed once the
// connection is closed.
func (c *Conn) Queue() <-chan []byte {
	return c.queue
}

// Send enqueues an encoded frame
func (c *Conn) Send(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return cnst.ErrConnClosed
	}
	select {
	case c.queue <- frame:
		return nil
	default:
		return cnst.ErrQueueFull
	}
}

// Close stops accepting frames; calling it again is a no-op
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.queue)
}

// Closed reports whether Close has been called
func (c *Conn) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
