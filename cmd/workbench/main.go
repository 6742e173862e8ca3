package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amoylab/workbench/internal/broadcast"
	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/amoylab/workbench/internal/common/config"
	"github.com/amoylab/workbench/internal/dispatcher"
	"github.com/amoylab/workbench/internal/relay"
	"github.com/amoylab/workbench/internal/server"
	"github.com/amoylab/workbench/internal/session"
	"github.com/amoylab/workbench/internal/translator"
	"github.com/amoylab/workbench/pkg/helper"
	"github.com/amoylab/workbench/pkg/logger"
	"github.com/amoylab/workbench/pkg/metrics"
	"github.com/amoylab/workbench/pkg/trace"
	"github.com/amoylab/workbench/pkg/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of " + cnst.CommandName,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", cnst.CommandName, version.Get())
		},
	}

	testCmd = &cobra.Command{
		Use:   "test",
		Short: "Check the configuration file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := config.LoadConfig[config.WorkbenchServerConfig](configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration %s: %w", cfgPath, err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration %s is invalid: %w", cfgPath, err)
			}
			fmt.Printf("configuration file %s test is successful\n", cfgPath)
			return nil
		},
	}

	rootCmd = &cobra.Command{
		Use:   cnst.CommandName,
		Short: "Collaborative code workbench server",
		Long:  `Workbench serves a shared code buffer, live cursors and chat to browsers over WebSocket`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", cnst.CommandName+".yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(testCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig[config.WorkbenchServerConfig](configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration %s: %v\n", cfgPath, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	lg.Info("starting "+cnst.AppName,
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, lg, cfg); err != nil {
		lg.Fatal("server exited with error", zap.Error(err))
	}
	lg.Info("server stopped")
}

func serve(ctx context.Context, lg *zap.Logger, cfg *config.WorkbenchServerConfig) error {
	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			lg.Warn("failed to shut down tracing", zap.Error(err))
		}
	}()

	pidFile := helper.NewPIDFile(cfg.PID)
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			lg.Warn("failed to remove PID file", zap.String("path", pidFile.Path()), zap.Error(err))
		}
	}()

	var m *metrics.Metrics
	var recorder dispatcher.Recorder
	var observer broadcast.Observer
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
		recorder, observer = m, m
	}

	rl, err := relay.NewRelay(ctx, lg, cfg.Relay)
	if err != nil {
		return fmt.Errorf("failed to initialize relay: %w", err)
	}
	defer rl.Close()

	state := session.NewState(session.Options{
		InitialCode:  cfg.Workbench.InitialCode,
		ChatCapacity: cfg.Workbench.ChatCapacity,
		Palette:      cfg.Workbench.Palette,
	})
	hub := broadcast.NewHub(lg, cfg.Workbench.SendQueueSize)
	// a single instance has no peers to announce itself to
	var heartbeat time.Duration
	if cfg.Relay.Type == config.RelayTypeRedis {
		heartbeat = cfg.Relay.HeartbeatInterval
	}
	d := dispatcher.New(dispatcher.Options{
		Logger:      lg,
		State:       state,
		Router:      broadcast.NewRouter(lg, hub, observer),
		Relay:       rl,
		Translate:   translator.Translate,
		Recorder:    recorder,
		StrictJoin:  cfg.Workbench.StrictJoin,
		Heartbeat:   heartbeat,
		PeerTimeout: cfg.Relay.PeerTimeout,
	})

	relayDone := make(chan error, 1)
	relayCtx, cancelRelay := context.WithCancel(ctx)
	defer cancelRelay()
	go func() { relayDone <- d.RunRelay(relayCtx) }()

	srv := server.NewServer(lg, hub, d, state, server.Options{
		Port:         cfg.Port,
		PingInterval: cfg.Workbench.PingInterval,
		ServiceName:  cfg.Tracing.ServiceName,
		Metrics:      m,
		MetricsPath:  cfg.Metrics.Path,
	})
	if err := srv.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		lg.Info("received shutdown signal")
	case err := <-relayDone:
		if err != nil && ctx.Err() == nil {
			lg.Error("relay stopped", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
