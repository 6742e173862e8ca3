package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppConstants(t *testing.T) {
	assert.Equal(t, "workbench", AppName)
	assert.Equal(t, "workbench", CommandName)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "set_username", EventSetUsername.String())
	assert.Equal(t, "cursor_remove", EventCursorRemove.String())
	assert.Equal(t, "translation_result", EventTranslationResult.String())
}
