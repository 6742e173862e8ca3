package session

import (
	"encoding/json"
	"sync"
)

// Options configures a State
type Options struct {
	InitialCode  string
	ChatCapacity int
	Palette      []string
	Pick         ColorPicker
}

// InitState is what a joining client receives
type InitState struct {
	Code    string                `json:"code"`
	Cursors map[string]CursorView `json:"cursors"`
}

// Stats is a point-in-time view used by health and metrics endpoints
type Stats struct {
	Users     int `json:"users"`
	ChatLines int `json:"chatLines"`
	CodeBytes int `json:"codeBytes"`
}

// State owns the registry, document and chat log behind one mutex.
// Every method holds the lock only for in-memory work.
type State struct {
	mu       sync.Mutex
	registry *Registry
	doc      *Document
	chat     *ChatLog
}

func NewState(opts Options) *State {
	return &State{
		registry: NewRegistry(opts.Palette, opts.Pick),
		doc:      NewDocument(opts.InitialCode),
		chat:     NewChatLog(opts.ChatCapacity),
	}
}

// Join identifies connID and returns the state it should be initialized with
func (s *State) Join(connID, name string) (Identity, InitState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.registry.Join(connID, name)
	return id, InitState{
		Code:    s.doc.Get(),
		Cursors: s.registry.VisibleCursors(connID),
	}
}

// JoinStrict is Join that refuses a connection that is already identified
func (s *State) JoinStrict(connID, name string) (Identity, InitState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.registry.JoinStrict(connID, name)
	if err != nil {
		return Identity{}, InitState{}, err
	}
	return id, InitState{
		Code:    s.doc.Get(),
		Cursors: s.registry.VisibleCursors(connID),
	}, nil
}

// Leave forgets connID and reports whether it had been identified
func (s *State) Leave(connID string) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Leave(connID)
}

// Lookup returns the identity of connID
func (s *State) Lookup(connID string) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Lookup(connID)
}

// UpdateCode replaces the document if connID is identified
func (s *State) UpdateCode(connID, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.Lookup(connID); !ok {
		return false
	}
	s.doc.Set(code)
	return true
}

// UpdateCursor stores connID's cursor and returns its identity for the broadcast
func (s *State) UpdateCursor(connID string, cursor json.RawMessage) (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.registry.Lookup(connID)
	if !ok {
		return Identity{}, false
	}
	s.registry.SetCursor(connID, cursor)
	return id, true
}

// PostChat appends a message under connID's current name
func (s *State) PostChat(connID, text string) (ChatEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.registry.Lookup(connID)
	if !ok {
		return ChatEntry{}, false
	}
	entry := ChatEntry{Username: id.Username, Message: text}
	s.chat.Append(entry)
	return entry, true
}

// SetCode replaces the document unconditionally; used for peer-originated edits
func (s *State) SetCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Set(code)
}

// AppendChat records a peer-originated chat entry
func (s *State) AppendChat(entry ChatEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat.Append(entry)
}

// UpsertRemote records a user and cursor of the peer instance origin
func (s *State) UpsertRemote(connID, origin string, id Identity, cursor json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.UpsertRemote(connID, origin, id, cursor)
}

// RemoveOrigin forgets every user of the peer instance origin
func (s *State) RemoveOrigin(origin string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.RemoveOrigin(origin)
}

// Code returns the current document
func (s *State) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Get()
}

// Chat returns the retained chat history, oldest first
func (s *State) Chat() []ChatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat.Snapshot()
}

// VisibleCursors is Registry.VisibleCursors under the state lock
func (s *State) VisibleCursors(exclude string) map[string]CursorView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.VisibleCursors(exclude)
}

func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Users:     s.registry.Len(),
		ChatLines: s.chat.Len(),
		CodeBytes: len(s.doc.Get()),
	}
}
