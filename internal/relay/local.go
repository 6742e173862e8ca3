package relay

import (
	"context"
	"sync"

	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalRelay is used when a single instance serves all clients. Nothing is
// ever delivered to subscribers.
type LocalRelay struct {
	logger *zap.Logger
	origin string
	mu     sync.RWMutex
	closed bool
}

var _ Relay = (*LocalRelay)(nil)

func NewLocalRelay(logger *zap.Logger) *LocalRelay {
	return &LocalRelay{
		logger: logger.Named("relay.local"),
		origin: uuid.NewString(),
	}
}

func (r *LocalRelay) Origin() string {
	return r.origin
}

func (r *LocalRelay) Publish(_ context.Context, _ *Envelope) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return cnst.ErrRelayClosed
	}
	return nil
}

func (r *LocalRelay) Subscribe(ctx context.Context) (<-chan *Envelope, error) {
	ch := make(chan *Envelope)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (r *LocalRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
