// Package relay carries workbench events between server instances so that
// every instance can apply peer edits to its own state and fan them out to its
// own connections.
package relay

import (
	"context"
	"encoding/json"

	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/amoylab/workbench/internal/session"
)

// Envelope is one relayed event
type Envelope struct {
	Origin  string            `json:"origin"` // instance that produced the event
	Event   cnst.EventType    `json:"event"`
	Seq     uint64            `json:"seq,omitempty"` // document write stamp of code updates
	ConnID  string            `json:"connId"`
	User    *session.Identity `json:"user,omitempty"`
	Code    string            `json:"code"`
	Cursor  json.RawMessage   `json:"cursor,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Relay publishes local events and delivers those of peer instances
type Relay interface {
	// Origin identifies this instance in published envelopes.
	Origin() string

	// Publish sends an envelope to peers.
	Publish(ctx context.Context, env *Envelope) error

	// Subscribe returns peer envelopes until ctx is done. Envelopes from this
	// instance are filtered out.
	Subscribe(ctx context.Context) (<-chan *Envelope, error)

	// Close releases the relay's resources.
	Close() error
}
