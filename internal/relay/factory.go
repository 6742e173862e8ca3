package relay

import (
	"context"
	"fmt"

	"github.com/amoylab/workbench/internal/common/config"
	"go.uber.org/zap"
)

// NewRelay creates a relay based on configuration
func NewRelay(ctx context.Context, logger *zap.Logger, cfg config.RelayConfig) (Relay, error) {
	logger.Info("Initializing relay", zap.String("type", cfg.Type))
	switch cfg.Type {
	case "", config.RelayTypeLocal:
		return NewLocalRelay(logger), nil
	case config.RelayTypeRedis:
		return NewRedisRelay(ctx, logger, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported relay type: %s", cfg.Type)
	}
}
