package server

import (
	"context"
	"net/http"
	"time"

	"github.com/amoylab/workbench/internal/broadcast"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// handleWebSocket upgrades the request and serves one client until it goes away
func (s *Server) handleWebSocket(c *gin.Context) {
	if !s.track() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}
	defer s.handlers.Done()

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	conn, err := s.hub.Register(connID)
	if err != nil {
		s.logger.Error("failed to register connection", zap.String("connId", connID), zap.Error(err))
		_ = ws.Close()
		return
	}
	s.conns.ConnOpened()
	defer s.conns.ConnClosed()

	s.logger.Info("WebSocket client connected",
		zap.String("connId", connID),
		zap.String("remote_addr", c.Request.RemoteAddr))

	ctx := context.WithoutCancel(c.Request.Context())
	writerDone := make(chan struct{})
	go s.writeLoop(ws, conn, writerDone)

	s.readLoop(ctx, ws, connID)

	s.dispatcher.Disconnect(ctx, connID)
	s.hub.Unregister(connID)
	<-writerDone
	_ = ws.Close()

	s.logger.Info("WebSocket client disconnected", zap.String("connId", connID))
}

// readLoop feeds inbound frames to the dispatcher in arrival order
func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, connID string) {
	ws.SetReadLimit(maxMessageSize)
	if s.pingInterval > 0 {
		pongWait := 2 * s.pingInterval
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		messageType, frame, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Warn("WebSocket connection error", zap.String("connId", connID), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		s.handleFrame(ctx, connID, frame)
	}
}

// handleFrame keeps a panic in one event from taking the connection down
func (s *Server) handleFrame(ctx context.Context, connID string, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while handling frame",
				zap.String("connId", connID),
				zap.Any("error", r),
				zap.ByteString("frame", frame))
		}
	}()
	s.dispatcher.HandleFrame(ctx, connID, frame)
}

// writeLoop is the only writer of ws. It drains the connection queue in order
// and sends keepalive pings.
func (s *Server) writeLoop(ws *websocket.Conn, conn *broadcast.Conn, done chan<- struct{}) {
	defer close(done)
	// unblocks the reader if the writer gives up first
	defer ws.Close()

	var tick <-chan time.Time
	if s.pingInterval > 0 {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case frame, ok := <-conn.Queue():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("failed to write frame", zap.String("connId", conn.ID()), zap.Error(err))
				return
			}
		case <-tick:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("ping failed", zap.String("connId", conn.ID()), zap.Error(err))
				return
			}
		}
	}
}
