package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/amoylab/workbench/internal/common/config"
	"github.com/amoylab/workbench/pkg/trace"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const subscriberBuffer = 256

// RedisRelay implements Relay over Redis pub/sub
type RedisRelay struct {
	logger *zap.Logger
	client redis.UniversalClient
	topic  string
	origin string

	mu      sync.Mutex
	closed  bool
	pubsubs []*redis.PubSub
}

var _ Relay = (*RedisRelay)(nil)

// NewRedisRelay creates a Redis-backed relay and checks connectivity
func NewRedisRelay(ctx context.Context, logger *zap.Logger, cfg config.RelayRedisConfig) (*RedisRelay, error) {
	opts := &redis.UniversalOptions{
		Addrs:    splitAddrs(cfg.Addr),
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.ClusterType == cnst.RedisClusterTypeSentinel {
		opts.MasterName = cfg.MasterName
	}
	if cfg.ClusterType != cnst.RedisClusterTypeCluster {
		// can not set db in cluster mode
		opts.DB = cfg.DB
	}
	client := redis.NewUniversalClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRelay{
		logger: logger.Named("relay.redis"),
		client: client,
		topic:  cfg.Topic,
		origin: uuid.NewString(),
	}, nil
}

func (r *RedisRelay) Origin() string {
	return r.origin
}

// Publish implements Relay.Publish
func (r *RedisRelay) Publish(ctx context.Context, env *Envelope) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return cnst.ErrRelayClosed
	}

	scope := trace.Tracer(cnst.TraceRelay).Start(ctx, cnst.SpanRelayPublish).
		WithAttrs(
			attribute.String(cnst.AttrEvent, env.Event.String()),
			attribute.String(cnst.AttrConnID, env.ConnID),
		)
	defer scope.End()

	env.Origin = r.origin
	data, err := json.Marshal(env)
	if err != nil {
		err = fmt.Errorf("failed to marshal relay envelope: %w", err)
		scope.Fail(err)
		return err
	}
	if err := r.client.Publish(scope.Ctx, r.topic, data).Err(); err != nil {
		err = fmt.Errorf("failed to publish relay envelope: %w", err)
		scope.Fail(err)
		return err
	}
	return nil
}

// Subscribe implements Relay.Subscribe
func (r *RedisRelay) Subscribe(ctx context.Context) (<-chan *Envelope, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, cnst.ErrRelayClosed
	}
	pubsub := r.client.Subscribe(ctx, r.topic)
	r.pubsubs = append(r.pubsubs, pubsub)
	r.mu.Unlock()

	// wait for the subscription to be confirmed so no publish after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.topic, err)
	}

	out := make(chan *Envelope, subscriberBuffer)
	go r.forward(ctx, pubsub, out)
	return out, nil
}

func (r *RedisRelay) forward(ctx context.Context, pubsub *redis.PubSub, out chan<- *Envelope) {
	defer close(out)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Error("failed to unmarshal relay envelope",
					zap.Error(err),
					zap.String("payload", msg.Payload))
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			select {
			case out <- &env:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close implements Relay.Close
func (r *RedisRelay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pubsubs := r.pubsubs
	r.pubsubs = nil
	r.mu.Unlock()

	for _, ps := range pubsubs {
		_ = ps.Close()
	}
	return r.client.Close()
}

// splitAddrs accepts ";" or "," separated address lists
func splitAddrs(addr string) []string {
	parts := strings.FieldsFunc(addr, func(r rune) bool { return r == ';' || r == ',' })
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			addrs = append(addrs, p)
		}
	}
	return addrs
}
