package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/amoylab/workbench/internal/broadcast"
	"github.com/amoylab/workbench/internal/dispatcher"
	"github.com/amoylab/workbench/internal/session"
	"github.com/amoylab/workbench/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

//go:embed pages/*.html
var pages embed.FS

// ConnRecorder is notified when websocket connections open and close
type ConnRecorder interface {
	ConnOpened()
	ConnClosed()
}

type nopConnRecorder struct{}

func (nopConnRecorder) ConnOpened() {}
func (nopConnRecorder) ConnClosed() {}

type Options struct {
	Port         int
	PingInterval time.Duration
	ServiceName  string
	// Metrics is optional; when set its middleware and handler are mounted at MetricsPath
	Metrics     *metrics.Metrics
	MetricsPath string
}

// Server serves the websocket endpoint and the entry pages
type Server struct {
	logger       *zap.Logger
	port         int
	router       *gin.Engine
	httpServer   *http.Server
	hub          *broadcast.Hub
	dispatcher   *dispatcher.Dispatcher
	state        *session.State
	conns        ConnRecorder
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	// handlers tracks live websocket handlers so Shutdown can wait for them
	handlers     sync.WaitGroup
	mu           sync.Mutex
	shuttingDown bool
}

// NewServer creates a workbench server
func NewServer(logger *zap.Logger, hub *broadcast.Hub, d *dispatcher.Dispatcher, state *session.State, opts Options) *Server {
	s := &Server{
		logger:       logger.Named("server"),
		port:         opts.Port,
		router:       gin.New(),
		hub:          hub,
		dispatcher:   d,
		state:        state,
		conns:        nopConnRecorder{},
		pingInterval: opts.PingInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "workbench"
	}
	s.router.Use(otelgin.Middleware(serviceName))
	s.router.Use(s.loggerMiddleware())
	s.router.Use(s.recoveryMiddleware())

	if opts.Metrics != nil {
		s.conns = opts.Metrics
		s.router.Use(opts.Metrics.Middleware())
		s.router.GET(opts.MetricsPath, gin.WrapH(opts.Metrics.Handler()))
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/", s.handlePage("translator.html"))
	s.router.GET("/translator", s.handlePage("translator.html"))
	s.router.GET("/workbench", s.handlePage("workbench.html"))
	s.router.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	s.router.GET("/healthz", s.handleHealth)
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handlePage(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := pages.ReadFile("pages/" + name)
		if err != nil {
			s.logger.Error("failed to read page", zap.String("page", name), zap.Error(err))
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.state.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.hub.Count(),
		"users":       stats.Users,
		"chatLines":   stats.ChatLines,
		"codeBytes":   stats.CodeBytes,
	})
}

// track counts a new websocket handler unless Shutdown has begun
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.handlers.Add(1)
	return true
}

// Start listens on the configured port in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops accepting requests, closes every websocket connection and
// waits for their handlers to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()
	err := s.httpServer.Shutdown(ctx)

	// hijacked connections are not tracked by http.Server
	s.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
