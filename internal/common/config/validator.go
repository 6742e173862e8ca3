package config

import (
	"fmt"
	"strings"

	"github.com/amoylab/workbench/internal/common/cnst"
)

// Relay types
const (
	RelayTypeLocal = "local"
	RelayTypeRedis = "redis"
)

// Location represents a configuration location
type Location struct {
	Key string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message   string
	Locations []Location
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	sb.WriteString("\n\n")
	for _, loc := range e.Locations {
		sb.WriteString("--> ")
		sb.WriteString(loc.Key)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ValidationErrors collects every problem found in one pass
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	var sb strings.Builder
	for i, e := range es {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Validate checks a loaded configuration after defaults have been applied
func (c *WorkbenchServerConfig) Validate() error {
	var errs ValidationErrors
	add := func(key, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Message:   fmt.Sprintf(format, args...),
			Locations: []Location{{Key: key}},
		})
	}

	if c.Port < 0 || c.Port > 65535 {
		add("port", "port %d out of range", c.Port)
	}
	if c.Workbench.ChatCapacity < 1 {
		add("workbench.chat_capacity", "chat capacity must be positive, got %d", c.Workbench.ChatCapacity)
	}
	if len(c.Workbench.Palette) < MinPaletteSize {
		add("workbench.palette", "palette needs at least %d distinct colors, got %d", MinPaletteSize, len(c.Workbench.Palette))
	}

	if c.Relay.PeerTimeout <= c.Relay.HeartbeatInterval {
		add("relay.peer_timeout", "peer timeout %s must exceed the heartbeat interval %s", c.Relay.PeerTimeout, c.Relay.HeartbeatInterval)
	}

	switch c.Relay.Type {
	case RelayTypeLocal:
	case RelayTypeRedis:
		if c.Relay.Redis.Addr == "" {
			add("relay.redis.addr", "redis relay requires an address")
		}
		switch c.Relay.Redis.ClusterType {
		case "", cnst.RedisClusterTypeSingle, cnst.RedisClusterTypeCluster:
		case cnst.RedisClusterTypeSentinel:
			if c.Relay.Redis.MasterName == "" {
				add("relay.redis.master_name", "sentinel mode requires a master name")
			}
		default:
			add("relay.redis.cluster_type", "unsupported redis cluster type %q", c.Relay.Redis.ClusterType)
		}
	default:
		add("relay.type", "unsupported relay type %q", c.Relay.Type)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
