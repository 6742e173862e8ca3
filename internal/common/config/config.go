package config

import (
	"os"
	"regexp"
	"time"

	"github.com/amoylab/workbench/pkg/helper"
	"github.com/amoylab/workbench/pkg/trace"

	"github.com/ifuryst/lol"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = 5000
	DefaultChatCapacity  = 100
	DefaultSendQueueSize = 256
	DefaultPingInterval  = 30 * time.Second
	DefaultMetricsPath   = "/metrics"
	DefaultRelayTopic    = "workbench:events"
	DefaultHeartbeat     = 5 * time.Second
	// MinPaletteSize is the smallest palette a deployment may configure
	MinPaletteSize = 7
)

// DefaultPalette is the set of cursor colors handed out at join time
var DefaultPalette = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#FED766", "#F0B37E", "#77DD77", "#CDB4DB"}

// DefaultInitialCode seeds the shared buffer when nothing is configured
const DefaultInitialCode = `#include <iostream>

int main() {
    // Welcome to the Collaborative C++ Code Workbench!
    // Multiple users can edit this code in real-time.
    std::cout << "Hello, collaborative world!" << std::endl;
    return 0;
}
`

type (
	// WorkbenchServerConfig is the root configuration of the workbench server
	WorkbenchServerConfig struct {
		Port      int             `yaml:"port"`
		PID       string          `yaml:"pid"`
		Logger    LoggerConfig    `yaml:"logger"`
		Workbench WorkbenchConfig `yaml:"workbench"`
		Relay     RelayConfig     `yaml:"relay"`
		Metrics   MetricsConfig   `yaml:"metrics"`
		Tracing   trace.Config    `yaml:"tracing"`
	}

	// WorkbenchConfig holds the shared session settings
	WorkbenchConfig struct {
		InitialCode   string        `yaml:"initial_code"`
		ChatCapacity  int           `yaml:"chat_capacity"`   // max chat entries retained
		Palette       []string      `yaml:"palette"`         // cursor colors, at least 7
		SendQueueSize int           `yaml:"send_queue_size"` // outbound frames buffered per connection
		PingInterval  time.Duration `yaml:"ping_interval"`   // websocket keepalive interval
		StrictJoin    bool          `yaml:"strict_join"`     // ignore set_username from already joined connections
	}

	// RelayConfig selects how events reach peer server instances
	RelayConfig struct {
		Type              string           `yaml:"type"`               // "local" or "redis"
		HeartbeatInterval time.Duration    `yaml:"heartbeat_interval"` // presence announcement period
		PeerTimeout       time.Duration    `yaml:"peer_timeout"`       // silence after which a peer's users are dropped
		Redis             RelayRedisConfig `yaml:"redis"`
	}

	// RelayRedisConfig represents the Redis configuration for the pub/sub relay
	RelayRedisConfig struct {
		ClusterType string `yaml:"cluster_type"` // single, sentinel, cluster
		Addr        string `yaml:"addr"`         // ";" or "," separated for sentinel/cluster
		MasterName  string `yaml:"master_name"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		Topic       string `yaml:"topic"`
	}

	// MetricsConfig represents the prometheus metrics configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Path      string    `yaml:"path"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}
)

type Type interface {
	WorkbenchServerConfig
}

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig[T Type](filename string) (*T, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	if wbCfg, ok := any(&cfg).(*WorkbenchServerConfig); ok {
		wbCfg.SetDefaults()
	}

	return &cfg, cfgPath, nil
}

// SetDefaults fills zero values with the built-in defaults
func (c *WorkbenchServerConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Workbench.InitialCode == "" {
		c.Workbench.InitialCode = DefaultInitialCode
	}
	if c.Workbench.ChatCapacity == 0 {
		c.Workbench.ChatCapacity = DefaultChatCapacity
	}
	if len(c.Workbench.Palette) == 0 {
		c.Workbench.Palette = append([]string(nil), DefaultPalette...)
	}
	c.Workbench.Palette = lol.UniqSlice(c.Workbench.Palette)
	if c.Workbench.SendQueueSize <= 0 {
		c.Workbench.SendQueueSize = DefaultSendQueueSize
	}
	if c.Workbench.PingInterval <= 0 {
		c.Workbench.PingInterval = DefaultPingInterval
	}
	if c.Relay.Type == "" {
		c.Relay.Type = RelayTypeLocal
	}
	if c.Relay.HeartbeatInterval <= 0 {
		c.Relay.HeartbeatInterval = DefaultHeartbeat
	}
	if c.Relay.PeerTimeout <= 0 {
		c.Relay.PeerTimeout = 3 * c.Relay.HeartbeatInterval
	}
	if c.Relay.Redis.Topic == "" {
		c.Relay.Redis.Topic = DefaultRelayTopic
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "workbench"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
