package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingObserver struct {
	mu        sync.Mutex
	delivered int
	dropped   map[string]int
}

func (o *countingObserver) FrameDelivered(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered++
}

func (o *countingObserver) FrameDropped(_ string, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.dropped == nil {
		o.dropped = make(map[string]int)
	}
	o.dropped[reason]++
}

func setup(t *testing.T, ids ...string) (*Router, *Hub, *countingObserver) {
	t.Helper()
	hub := NewHub(zap.NewNop(), 16)
	for _, id := range ids {
		_, err := hub.Register(id)
		require.NoError(t, err)
	}
	obs := &countingObserver{}
	return NewRouter(zap.NewNop(), hub, obs), hub, obs
}

func drain(t *testing.T, hub *Hub, id string) []Frame {
	t.Helper()
	conn, ok := hub.Get(id)
	require.True(t, ok)
	var frames []Frame
	for {
		select {
		case raw := <-conn.Queue():
			var f Frame
			require.NoError(t, json.Unmarshal(raw, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func TestRouter_Targets(t *testing.T) {
	cases := []struct {
		target Target
		want   map[string]int
	}{
		{AllExceptSender, map[string]int{"a": 0, "b": 1, "c": 1}},
		{AllIncludingSender, map[string]int{"a": 1, "b": 1, "c": 1}},
		{SenderOnly, map[string]int{"a": 1, "b": 0, "c": 0}},
	}
	for _, tc := range cases {
		t.Run(tc.target.String(), func(t *testing.T) {
			r, hub, _ := setup(t, "a", "b", "c")
			n := r.Send(cnst.EventCodeUpdate, "x", tc.target, "a")

			total := 0
			for id, want := range tc.want {
				assert.Len(t, drain(t, hub, id), want, id)
				total += want
			}
			assert.Equal(t, total, n)
		})
	}
}

func TestRouter_FrameShape(t *testing.T) {
	r, hub, _ := setup(t, "a")
	r.Send(cnst.EventChatMessage, map[string]string{"username": "Alice", "message": "hi"}, SenderOnly, "a")

	conn, _ := hub.Get("a")
	raw := <-conn.Queue()
	assert.JSONEq(t, `{"event":"chat_message","data":{"username":"Alice","message":"hi"}}`, string(raw))
}

func TestRouter_ClosedTargetDoesNotAbortOthers(t *testing.T) {
	r, hub, obs := setup(t, "a", "b", "c")
	b, _ := hub.Get("b")
	b.Close()

	n := r.Send(cnst.EventCodeUpdate, "x", AllExceptSender, "a")
	assert.Equal(t, 1, n)
	assert.Len(t, drain(t, hub, "c"), 1)
	assert.Equal(t, 1, obs.dropped["closed"])
	assert.Equal(t, 1, obs.delivered)
}

func TestRouter_FullQueueDropsForThatTargetOnly(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	_, _ = hub.Register("a")
	_, _ = hub.Register("b")
	obs := &countingObserver{}
	r := NewRouter(zap.NewNop(), hub, obs)

	r.Send(cnst.EventCodeUpdate, "1", SenderOnly, "b")
	n := r.Send(cnst.EventCodeUpdate, "2", AllIncludingSender, "a")
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, obs.dropped["queue_full"])
}

func TestRouter_SenderOnlyUnknownSender(t *testing.T) {
	r, _, _ := setup(t, "a")
	assert.Equal(t, 0, r.Send(cnst.EventInitState, nil, SenderOnly, "ghost"))
}

func TestRouter_UnencodablePayload(t *testing.T) {
	r, hub, _ := setup(t, "a")
	assert.Equal(t, 0, r.Send(cnst.EventCodeUpdate, make(chan int), AllIncludingSender, ""))
	assert.Empty(t, drain(t, hub, "a"))
}

func TestRouter_PreservesPerSenderOrder(t *testing.T) {
	r, hub, _ := setup(t, "a", "b")
	for i := 0; i < 10; i++ {
		r.Send(cnst.EventCodeUpdate, fmt.Sprint(i), AllExceptSender, "a")
		r.Send(cnst.EventCursorUpdate, fmt.Sprint(i), AllExceptSender, "a")
	}
	frames := drain(t, hub, "b")
	require.Len(t, frames, 20)
	for i := 0; i < 10; i++ {
		assert.Equal(t, cnst.EventCodeUpdate, frames[2*i].Event)
		assert.Equal(t, fmt.Sprint(i), frames[2*i].Data)
		assert.Equal(t, cnst.EventCursorUpdate, frames[2*i+1].Event)
	}
}

func TestRouter_Local(t *testing.T) {
	r, hub, _ := setup(t, "a", "b")
	assert.Equal(t, 2, r.Local(cnst.EventCursorRemove, map[string]string{"userId": "peer"}))
	assert.Len(t, drain(t, hub, "a"), 1)
	assert.Len(t, drain(t, hub, "b"), 1)
}

func TestTarget_String(t *testing.T) {
	assert.Equal(t, "sender_only", SenderOnly.String())
	assert.Equal(t, "target(9)", Target(9).String())
}
