package cnst

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorConstants(t *testing.T) {
	t.Run("messages", func(t *testing.T) {
		assert.Equal(t, "connection already joined", ErrAlreadyJoined.Error())
		assert.Equal(t, "connection closed", ErrConnClosed.Error())
		assert.Equal(t, "outbound queue is full", ErrQueueFull.Error())
		assert.Equal(t, "unknown event", ErrUnknownEvent.Error())
	})

	t.Run("wrapped errors still match", func(t *testing.T) {
		err := fmt.Errorf("send to c1: %w", ErrConnClosed)
		assert.True(t, errors.Is(err, ErrConnClosed))
		assert.False(t, errors.Is(err, ErrQueueFull))
	})
}
