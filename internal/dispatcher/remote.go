package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/amoylab/workbench/internal/relay"
	"github.com/amoylab/workbench/internal/session"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	errUnroutable = errors.New("envelope can not be applied")
	errStaleEdit  = errors.New("code update is older than the current document")
)

// RunRelay applies peer envelopes until ctx is done or the subscription ends.
// When a heartbeat is configured it also announces this instance to its peers
// and expires peers that went silent.
func (d *Dispatcher) RunRelay(ctx context.Context) error {
	envs, err := d.relay.Subscribe(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("relay subscription started", zap.String("origin", d.relay.Origin()))

	var tick <-chan time.Time
	if d.heartbeat > 0 {
		ticker := time.NewTicker(d.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
		d.announce(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			d.announce(ctx)
			d.ExpirePeers()
		case env, ok := <-envs:
			if !ok {
				d.logger.Info("relay subscription closed")
				return nil
			}
			d.ApplyRemote(ctx, env)
		}
	}
}

func (d *Dispatcher) announce(ctx context.Context) {
	d.publish(ctx, &relay.Envelope{Event: cnst.EventPresence})
}

// ExpirePeers forgets the users of every peer instance that has not been heard
// from within the peer timeout. Local connections are told the users left.
// It returns the number of users removed.
func (d *Dispatcher) ExpirePeers() int {
	if d.peerTimeout <= 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for origin, seen := range d.peers {
		if now.Sub(seen) <= d.peerTimeout {
			continue
		}
		delete(d.peers, origin)
		ids := d.state.RemoveOrigin(origin)
		for _, id := range ids {
			d.router.Local(cnst.EventCursorRemove, CursorRemovePayload{UserID: id})
		}
		if len(ids) > 0 {
			d.usersChanged()
		}
		removed += len(ids)
		d.logger.Warn("peer instance went silent",
			zap.String("origin", origin),
			zap.Duration("silence", now.Sub(seen)),
			zap.Int("users", len(ids)))
	}
	return removed
}

// ApplyRemote applies an event produced by a peer instance to local state and
// delivers it to every local connection. Envelopes of this instance are ignored.
func (d *Dispatcher) ApplyRemote(ctx context.Context, env *relay.Envelope) {
	if env == nil || env.Origin == d.relay.Origin() {
		return
	}
	scope := d.tracer.Start(ctx, cnst.SpanRelayApply).
		WithAttrs(
			attribute.String(cnst.AttrRelayOrigin, env.Origin),
			attribute.String(cnst.AttrEvent, env.Event.String()),
			attribute.String(cnst.AttrConnID, env.ConnID),
		)
	defer scope.End()

	d.mu.Lock()
	d.peers[env.Origin] = d.now()
	err := d.applyRemote(env)
	d.mu.Unlock()

	if errors.Is(err, errStaleEdit) {
		d.recorder.EventDropped(env.Event.String(), dropStale)
		d.logger.Debug("dropping superseded code update",
			zap.String("origin", env.Origin),
			zap.Uint64("seq", env.Seq))
		return
	}
	if err != nil {
		scope.Fail(err)
		d.logger.Debug("dropping relayed envelope",
			zap.String("origin", env.Origin),
			zap.String("event", env.Event.String()),
			zap.Error(err))
		return
	}
	d.recorder.RelayApplied(env.Event.String())
}

// applyRemote is the peer counterpart of apply. Callers hold d.mu.
func (d *Dispatcher) applyRemote(env *relay.Envelope) error {
	switch env.Event {
	case cnst.EventPresence:
		// liveness only

	case cnst.EventCodeUpdate:
		// keep the write with the highest (seq, origin) stamp
		if env.Seq < d.codeSeq || (env.Seq == d.codeSeq && env.Origin <= d.codeOrigin) {
			return errStaleEdit
		}
		d.codeSeq, d.codeOrigin = env.Seq, env.Origin
		d.state.SetCode(env.Code)
		d.router.Local(cnst.EventCodeUpdate, env.Code)

	case cnst.EventCursorUpdate:
		if env.User == nil {
			return errUnroutable
		}
		d.state.UpsertRemote(env.ConnID, env.Origin, *env.User, env.Cursor)
		d.router.Local(cnst.EventCursorUpdate,
			CursorUpdatePayload{UserID: env.ConnID, Cursor: env.Cursor, User: *env.User})
		d.usersChanged()

	case cnst.EventChatMessage:
		if env.User == nil {
			return errUnroutable
		}
		entry := session.ChatEntry{Username: env.User.Username, Message: env.Message}
		d.state.AppendChat(entry)
		d.router.Local(cnst.EventChatMessage, entry)

	case cnst.EventCursorRemove:
		if _, ok := d.state.Leave(env.ConnID); ok {
			d.usersChanged()
		}
		d.router.Local(cnst.EventCursorRemove, CursorRemovePayload{UserID: env.ConnID})

	default:
		return errUnroutable
	}
	return nil
}
