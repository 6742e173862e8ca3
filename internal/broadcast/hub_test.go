package broadcast

import (
	"testing"

	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_RegisterGetListUnregister(t *testing.T) {
	h := NewHub(zap.NewNop(), 4)

	conn, err := h.Register("c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", conn.ID())

	// duplicate register should fail
	_, err = h.Register("c1")
	assert.ErrorIs(t, err, cnst.ErrDuplicateConn)

	got, ok := h.Get("c1")
	assert.True(t, ok)
	assert.Same(t, conn, got)
	assert.Len(t, h.List(), 1)
	assert.Equal(t, 1, h.Count())

	h.Unregister("c1")
	_, ok = h.Get("c1")
	assert.False(t, ok)
	assert.True(t, conn.Closed())

	// unknown id is ignored
	h.Unregister("nope")
	assert.Equal(t, 0, h.Count())
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub(zap.NewNop(), 1)
	a, _ := h.Register("a")
	b, _ := h.Register("b")
	h.CloseAll()
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Equal(t, 0, h.Count())

	// late registrations are refused
	_, err := h.Register("c")
	assert.ErrorIs(t, err, cnst.ErrHubClosed)
	assert.Equal(t, 0, h.Count())
}

func TestConn_SendQueueFull(t *testing.T) {
	c := newConn("x", 2)
	assert.NoError(t, c.Send([]byte("1")))
	assert.NoError(t, c.Send([]byte("2")))
	assert.ErrorIs(t, c.Send([]byte("3")), cnst.ErrQueueFull)
}

func TestConn_SendAfterClose(t *testing.T) {
	c := newConn("x", 2)
	require.NoError(t, c.Send([]byte("1")))
	c.Close()
	c.Close()
	assert.ErrorIs(t, c.Send([]byte("2")), cnst.ErrConnClosed)

	// queued frames are still drained, then the channel is closed
	var got []string
	for f := range c.Queue() {
		got = append(got, string(f))
	}
	assert.Equal(t, []string{"1"}, got)
}
