package session

import (
	"encoding/json"
	"math/rand"
	"slices"

	"github.com/amoylab/workbench/internal/common/cnst"
)

// Identity is the display name and color bound to a connection after it announces itself
type Identity struct {
	Username string `json:"username"`
	Color    string `json:"color"`
}

// CursorView is a cursor joined with the identity of its owner
type CursorView struct {
	Cursor json.RawMessage `json:"cursor"`
	User   Identity        `json:"user"`
}

// ColorPicker returns an index in [0, n)
type ColorPicker func(n int) int

type member struct {
	identity Identity
	// nil until the client first reports a position
	cursor json.RawMessage
	// instance the user is connected to; empty for local connections
	origin string
}

// Registry maps live connections to their identity and cursor.
// It is not safe for concurrent use; State serializes access.
type Registry struct {
	palette []string
	pick    ColorPicker
	members map[string]*member
}

// NewRegistry creates a registry that draws colors from palette.
// A nil pick uses a uniform random draw.
func NewRegistry(palette []string, pick ColorPicker) *Registry {
	if pick == nil {
		pick = rand.Intn
	}
	return &Registry{
		palette: append([]string(nil), palette...),
		pick:    pick,
		members: make(map[string]*member),
	}
}

// Join registers connID under name. Joining again re-registers the connection
// with a fresh color and keeps its cursor.
func (r *Registry) Join(connID, name string) Identity {
	id := Identity{Username: name, Color: r.randomColor()}
	if m, ok := r.members[connID]; ok {
		m.identity = id
		return id
	}
	r.members[connID] = &member{identity: id}
	return id
}

// JoinStrict is Join that refuses an already identified connection
func (r *Registry) JoinStrict(connID, name string) (Identity, error) {
	if _, ok := r.members[connID]; ok {
		return Identity{}, cnst.ErrAlreadyJoined
	}
	return r.Join(connID, name), nil
}

// UpsertRemote records a user that lives on the peer instance origin
func (r *Registry) UpsertRemote(connID, origin string, id Identity, cursor json.RawMessage) {
	m, ok := r.members[connID]
	if !ok {
		m = &member{}
		r.members[connID] = m
	}
	m.identity = id
	m.cursor = cursor
	m.origin = origin
}

// RemoveOrigin drops every user learned from the peer instance origin and
// returns their connection ids in sorted order
func (r *Registry) RemoveOrigin(origin string) []string {
	if origin == "" {
		return nil
	}
	var removed []string
	for connID, m := range r.members {
		if m.origin == origin {
			delete(r.members, connID)
			removed = append(removed, connID)
		}
	}
	slices.Sort(removed)
	return removed
}

// Leave removes identity and cursor together. It reports the identity that was
// removed; a missing connection is a no-op.
func (r *Registry) Leave(connID string) (Identity, bool) {
	m, ok := r.members[connID]
	if !ok {
		return Identity{}, false
	}
	delete(r.members, connID)
	return m.identity, true
}

// Lookup returns the identity of connID
func (r *Registry) Lookup(connID string) (Identity, bool) {
	m, ok := r.members[connID]
	if !ok {
		return Identity{}, false
	}
	return m.identity, true
}

// SetCursor stores the cursor of an identified connection. Updates from unknown
// connections are dropped and reported as false.
func (r *Registry) SetCursor(connID string, cursor json.RawMessage) bool {
	m, ok := r.members[connID]
	if !ok {
		return false
	}
	m.cursor = cursor
	return true
}

// VisibleCursors returns every reported cursor that still has an owner, except exclude's
func (r *Registry) VisibleCursors(exclude string) map[string]CursorView {
	out := make(map[string]CursorView, len(r.members))
	for connID, m := range r.members {
		if connID == exclude || m.cursor == nil {
			continue
		}
		out[connID] = CursorView{Cursor: m.cursor, User: m.identity}
	}
	return out
}

// Len returns the number of identified connections
func (r *Registry) Len() int {
	return len(r.members)
}

func (r *Registry) randomColor() string {
	if len(r.palette) == 0 {
		return ""
	}
	return r.palette[r.pick(len(r.palette))]
}
