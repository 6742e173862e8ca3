package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/amoylab/workbench/internal/common/cnst"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	return NewState(Options{InitialCode: "init", ChatCapacity: 100, Palette: testPalette})
}

func TestDocument_FullReplace(t *testing.T) {
	d := NewDocument("abc")
	assert.Equal(t, "abc", d.Get())
	d.Set("x")
	assert.Equal(t, "x", d.Get())
	d.Set("")
	assert.Equal(t, "", d.Get())
}

func TestState_JoinSeesLatestCode(t *testing.T) {
	s := newTestState()
	s.Join("a", "Alice")
	require.True(t, s.UpdateCode("a", "int x;"))

	_, init := s.Join("b", "Bob")
	assert.Equal(t, "int x;", init.Code)
}

func TestState_DepartedCursorNotInInitState(t *testing.T) {
	s := newTestState()
	s.Join("a", "Alice")
	_, ok := s.UpdateCursor("a", json.RawMessage(`{"line":3,"col":5}`))
	require.True(t, ok)
	s.Leave("a")

	_, init := s.Join("b", "Bob")
	assert.NotContains(t, init.Cursors, "a")
	assert.Empty(t, init.Cursors)
}

func TestState_InitStateExcludesSelf(t *testing.T) {
	s := newTestState()
	s.Join("a", "Alice")
	s.UpdateCursor("a", json.RawMessage(`{"line":1}`))
	s.Join("b", "Bob")
	s.UpdateCursor("b", json.RawMessage(`{"line":2}`))

	_, init := s.Join("b", "Bob")
	assert.Contains(t, init.Cursors, "a")
	assert.NotContains(t, init.Cursors, "b")
}

func TestState_AnonymousMutationsIgnored(t *testing.T) {
	s := newTestState()
	assert.False(t, s.UpdateCode("ghost", "pwned"))
	_, ok := s.UpdateCursor("ghost", json.RawMessage(`{}`))
	assert.False(t, ok)
	_, ok = s.PostChat("ghost", "hi")
	assert.False(t, ok)

	assert.Equal(t, "init", s.Code())
	assert.Empty(t, s.Chat())
	assert.Empty(t, s.VisibleCursors(""))
}

func TestState_PostChatUsesCurrentName(t *testing.T) {
	s := newTestState()
	s.Join("a", "Alice")
	e, ok := s.PostChat("a", "hello")
	require.True(t, ok)
	assert.Equal(t, ChatEntry{Username: "Alice", Message: "hello"}, e)
	assert.Equal(t, []ChatEntry{e}, s.Chat())
}

func TestState_RemoteMutations(t *testing.T) {
	s := newTestState()
	s.SetCode("remote code")
	s.AppendChat(ChatEntry{Username: "Zed", Message: "yo"})
	s.UpsertRemote("peer", "instance-b", Identity{Username: "Zed", Color: "#000"}, json.RawMessage(`{"line":4}`))

	assert.Equal(t, "remote code", s.Code())
	assert.Len(t, s.Chat(), 1)
	assert.Contains(t, s.VisibleCursors(""), "peer")
	assert.Equal(t, Stats{Users: 1, ChatLines: 1, CodeBytes: len("remote code")}, s.Stats())
}

func TestState_JoinStrict(t *testing.T) {
	s := newTestState()
	_, init, err := s.JoinStrict("a", "Alice")
	require.NoError(t, err)
	assert.Equal(t, s.Code(), init.Code)

	_, _, err = s.JoinStrict("a", "Alicia")
	assert.ErrorIs(t, err, cnst.ErrAlreadyJoined)
	id, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "Alice", id.Username)
}

func TestState_RemoveOrigin(t *testing.T) {
	s := newTestState()
	s.Join("local", "Alice")
	s.UpsertRemote("p1", "instance-b", Identity{Username: "Zed"}, json.RawMessage(`{"line":1}`))
	s.UpsertRemote("p2", "instance-b", Identity{Username: "Yan"}, json.RawMessage(`{"line":2}`))
	s.UpsertRemote("p3", "instance-c", Identity{Username: "Xi"}, json.RawMessage(`{"line":3}`))

	assert.Equal(t, []string{"p1", "p2"}, s.RemoveOrigin("instance-b"))
	assert.NotContains(t, s.VisibleCursors(""), "p1")
	assert.Contains(t, s.VisibleCursors(""), "p3")
	assert.Equal(t, 2, s.Stats().Users)
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := newTestState()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			s.Join(id, id)
			s.UpdateCode(id, id)
			s.UpdateCursor(id, json.RawMessage(`{"line":1}`))
			s.PostChat(id, "hi")
			s.Leave(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, s.Stats().Users)
	assert.Len(t, s.Chat(), 20)
}
