// Package dispatcher is the workbench protocol state machine. It binds inbound
// events to session state mutations and fans the results out through the
// broadcast router.
//
// Every event, local or relayed from a peer, is handled under one lock so
// that state mutations and the order in which their frames are queued agree.
// Nothing inside the lock blocks: queueing frames is non-blocking and relay
// publishing happens after the lock is released.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amoylab/workbench/internal/broadcast"
	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/amoylab/workbench/internal/relay"
	"github.com/amoylab/workbench/internal/session"
	"github.com/amoylab/workbench/pkg/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WorkbenchURL is where request_workbench redirects
const WorkbenchURL = "/workbench"

// Drop reasons reported to the Recorder
const (
	dropAnonymous     = "anonymous"
	dropAlreadyJoined = "already_joined"
	dropStale         = "stale"
)

// Recorder receives protocol metrics
type Recorder interface {
	EventHandled(event string, since time.Time)
	EventDropped(event, reason string)
	UsersChanged(n int)
	RelayPublished(event string)
	RelayApplied(event string)
}

type nopRecorder struct{}

func (nopRecorder) EventHandled(string, time.Time) {}
func (nopRecorder) EventDropped(string, string)    {}
func (nopRecorder) UsersChanged(int)               {}
func (nopRecorder) RelayPublished(string)          {}
func (nopRecorder) RelayApplied(string)            {}

// Translator turns text into its translation
type Translator func(text string) string

// Options holds the dispatcher's collaborators. Logger, State and Router are required.
type Options struct {
	Logger    *zap.Logger
	State     *session.State
	Router    *broadcast.Router
	Relay     relay.Relay
	Translate Translator
	Recorder  Recorder

	// StrictJoin makes set_username from an already joined connection a no-op
	StrictJoin bool

	// Heartbeat is how often RunRelay announces this instance to its peers; zero disables it
	Heartbeat time.Duration

	// PeerTimeout is how long a silent peer's users are kept; zero keeps them forever
	PeerTimeout time.Duration
}

// Dispatcher routes the events of every local connection and every peer
// instance through the shared session state. It is safe for concurrent use.
type Dispatcher struct {
	logger      *zap.Logger
	mu          sync.Mutex // serializes event handling
	state       *session.State
	router      *broadcast.Router
	relay       relay.Relay
	translate   Translator
	recorder    Recorder
	tracer      *trace.Builder
	strictJoin  bool
	heartbeat   time.Duration
	peerTimeout time.Duration
	now         func() time.Time

	// stamp of the last accepted document write, guarded by mu
	codeSeq    uint64
	codeOrigin string

	// last time each peer instance was heard from, guarded by mu
	peers map[string]time.Time
}

// New builds a Dispatcher from opts. A missing relay falls back to a
// LocalRelay so a single instance needs no extra wiring.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		logger:      opts.Logger.Named("dispatcher"),
		state:       opts.State,
		router:      opts.Router,
		relay:       opts.Relay,
		translate:   opts.Translate,
		recorder:    opts.Recorder,
		tracer:      trace.Tracer(cnst.TraceDispatcher),
		strictJoin:  opts.StrictJoin,
		heartbeat:   opts.Heartbeat,
		peerTimeout: opts.PeerTimeout,
		now:         time.Now,
		peers:       make(map[string]time.Time),
	}
	if d.relay == nil {
		d.relay = relay.NewLocalRelay(opts.Logger)
	}
	if d.translate == nil {
		d.translate = func(string) string { return "" }
	}
	if d.recorder == nil {
		d.recorder = nopRecorder{}
	}
	return d
}

// HandleFrame decodes a raw inbound frame and handles it. Frames that cannot
// be decoded are dropped.
func (d *Dispatcher) HandleFrame(ctx context.Context, connID string, frame []byte) {
	ev, err := Decode(frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, cnst.ErrUnknownEvent) {
			reason = "unknown_event"
		}
		d.recorder.EventDropped("invalid", reason)
		d.logger.Debug("dropping undecodable frame",
			zap.String("connId", connID),
			zap.Error(err))
		return
	}
	d.Handle(ctx, connID, ev)
}

// Handle applies ev on behalf of connID
func (d *Dispatcher) Handle(ctx context.Context, connID string, ev Event) {
	start := time.Now()
	name := ev.Type().String()
	scope := d.tracer.Start(ctx, cnst.SpanEventPrefix+name).
		WithAttrs(
			attribute.String(cnst.AttrConnID, connID),
			attribute.String(cnst.AttrEvent, name),
		)
	defer scope.End()

	var (
		env    *relay.Envelope
		reason string
	)
	switch e := ev.(type) {
	case TranslateRequest:
		// stateless: no lock, no relay
		d.router.Send(cnst.EventTranslationResult,
			TranslationResultPayload{Translation: d.translate(e.Text)},
			broadcast.SenderOnly, connID)
	case RequestWorkbench:
		d.router.Send(cnst.EventRedirect, RedirectPayload{URL: WorkbenchURL}, broadcast.SenderOnly, connID)
	default:
		d.mu.Lock()
		env, reason = d.apply(connID, ev)
		d.mu.Unlock()
	}

	scope.WithAttrs(attribute.Bool(cnst.AttrIdentified, reason != dropAnonymous))
	if reason != "" {
		d.recorder.EventDropped(name, reason)
		d.logger.Debug("dropping event",
			zap.String("connId", connID),
			zap.String("event", name),
			zap.String("reason", reason))
		return
	}
	d.recorder.EventHandled(name, start)

	if env != nil {
		d.publish(scope.Ctx, env)
	}
}

// Disconnect forgets connID; identified users are announced as removed
func (d *Dispatcher) Disconnect(ctx context.Context, connID string) {
	d.Handle(ctx, connID, Disconnect{})
}

// apply mutates state and queues frames. It returns the envelope to relay, if
// any, and a non-empty drop reason when the event was ignored. Callers hold d.mu.
func (d *Dispatcher) apply(connID string, ev Event) (*relay.Envelope, string) {
	switch e := ev.(type) {
	case SetUsername:
		var (
			id   session.Identity
			init session.InitState
		)
		if d.strictJoin {
			var err error
			if id, init, err = d.state.JoinStrict(connID, e.Name); err != nil {
				return nil, dropAlreadyJoined
			}
		} else {
			id, init = d.state.Join(connID, e.Name)
		}
		d.router.Send(cnst.EventInitState, init, broadcast.SenderOnly, connID)
		d.usersChanged()
		d.logger.Info("user joined",
			zap.String("connId", connID),
			zap.String("username", id.Username),
			zap.String("color", id.Color))
		return nil, ""

	case CodeUpdate:
		if !d.state.UpdateCode(connID, e.Code) {
			return nil, dropAnonymous
		}
		// a local write supersedes every write seen so far
		d.codeSeq++
		d.codeOrigin = d.relay.Origin()
		d.router.Send(cnst.EventCodeUpdate, e.Code, broadcast.AllExceptSender, connID)
		return &relay.Envelope{Event: cnst.EventCodeUpdate, Seq: d.codeSeq, ConnID: connID, Code: e.Code}, ""

	case CursorUpdate:
		id, ok := d.state.UpdateCursor(connID, e.Cursor)
		if !ok {
			return nil, dropAnonymous
		}
		d.router.Send(cnst.EventCursorUpdate,
			CursorUpdatePayload{UserID: connID, Cursor: e.Cursor, User: id},
			broadcast.AllExceptSender, connID)
		return &relay.Envelope{Event: cnst.EventCursorUpdate, ConnID: connID, User: &id, Cursor: e.Cursor}, ""

	case ChatMessage:
		entry, ok := d.state.PostChat(connID, e.Text)
		if !ok {
			return nil, dropAnonymous
		}
		d.router.Send(cnst.EventChatMessage, entry, broadcast.AllIncludingSender, connID)
		return &relay.Envelope{
			Event:   cnst.EventChatMessage,
			ConnID:  connID,
			User:    &session.Identity{Username: entry.Username},
			Message: entry.Message,
		}, ""

	case Disconnect:
		id, ok := d.state.Leave(connID)
		if !ok {
			// anonymous connections leave silently
			return nil, ""
		}
		d.router.Send(cnst.EventCursorRemove, CursorRemovePayload{UserID: connID}, broadcast.AllExceptSender, connID)
		d.usersChanged()
		d.logger.Info("user left",
			zap.String("connId", connID),
			zap.String("username", id.Username))
		return &relay.Envelope{Event: cnst.EventCursorRemove, ConnID: connID}, ""

	default:
		d.logger.Warn("unhandled event type", zap.String("event", ev.Type().String()))
		return nil, "unhandled"
	}
}

func (d *Dispatcher) publish(ctx context.Context, env *relay.Envelope) {
	if err := d.relay.Publish(ctx, env); err != nil {
		d.logger.Warn("failed to publish event to relay",
			zap.String("event", env.Event.String()),
			zap.String("connId", env.ConnID),
			zap.Error(err))
		return
	}
	d.recorder.RelayPublished(env.Event.String())
}

func (d *Dispatcher) usersChanged() {
	d.recorder.UsersChanged(d.state.Stats().Users)
}
