package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amoylab/workbench/internal/common/cnst"
	"go.uber.org/zap"
)

// Target selects which connections receive a broadcast
type Target int

const (
	// AllExceptSender delivers to every connection but the sender
	AllExceptSender Target = iota
	// AllIncludingSender delivers to every connection
	AllIncludingSender
	// SenderOnly delivers to the sender alone
	SenderOnly
)

func (t Target) String() string {
	switch t {
	case AllExceptSender:
		return "all_except_sender"
	case AllIncludingSender:
		return "all_including_sender"
	case SenderOnly:
		return "sender_only"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// Frame is the wire envelope of every message
type Frame struct {
	Event cnst.EventType `json:"event"`
	Data  any            `json:"data"`
}

// Observer is notified about every delivery attempt
type Observer interface {
	FrameDelivered(event string)
	FrameDropped(event, reason string)
}

type nopObserver struct{}

func (nopObserver) FrameDelivered(string) {}
func (nopObserver) FrameDropped(string, string) {}

// Router fans events out to the hub's connections
type Router struct {
	logger   *zap.Logger
	hub      *Hub
	observer Observer
}

// NewRouter creates a router over hub. observer may be nil.
func NewRouter(logger *zap.Logger, hub *Hub, observer Observer) *Router {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Router{
		logger:   logger.Named("broadcast.router"),
		hub:      hub,
		observer: observer,
	}
}

// Encode marshals an event into a wire frame
func Encode(event cnst.EventType, payload any) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: payload})
}

// Send delivers payload to the connections selected by target and returns how
// many accepted it. Closed or saturated connections are skipped.
func (r *Router) Send(event cnst.EventType, payload any, target Target, sender string) int {
	frame, err := Encode(event, payload)
	if err != nil {
		r.logger.Error("failed to encode frame",
			zap.String("event", event.String()),
			zap.Error(err))
		return 0
	}
	return r.SendFrame(event, frame, target, sender)
}

// SendFrame is Send for an already encoded frame
func (r *Router) SendFrame(event cnst.EventType, frame []byte, target Target, sender string) int {
	var targets []*Conn
	switch target {
	case SenderOnly:
		if conn, ok := r.hub.Get(sender); ok {
			targets = []*Conn{conn}
		}
	case AllIncludingSender:
		targets = r.hub.List()
	case AllExceptSender:
		for _, conn := range r.hub.List() {
			if conn.ID() != sender {
				targets = append(targets, conn)
			}
		}
	default:
		r.logger.Error("unknown broadcast target", zap.Stringer("target", target))
		return 0
	}

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(frame); err != nil {
			reason := "error"
			switch {
			case errors.Is(err, cnst.ErrConnClosed):
				reason = "closed"
			case errors.Is(err, cnst.ErrQueueFull):
				reason = "queue_full"
			}
			r.observer.FrameDropped(event.String(), reason)
			r.logger.Debug("frame dropped",
				zap.String("event", event.String()),
				zap.String("target", conn.ID()),
				zap.String("reason", reason))
			continue
		}
		r.observer.FrameDelivered(event.String())
		delivered++
	}
	return delivered
}

// Local delivers a peer-originated event to every connection of this instance
func (r *Router) Local(event cnst.EventType, payload any) int {
	return r.Send(event, payload, AllIncludingSender, "")
}
