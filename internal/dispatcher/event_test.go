package dispatcher

import (
	"testing"

	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Event
	}{
		{"set username", `{"event":"set_username","data":"Alice"}`, SetUsername{Name: "Alice"}},
		{"set username non string", `{"event":"set_username","data":42}`, SetUsername{}},
		{"code update", `{"event":"code_update","data":"int x;\n"}`, CodeUpdate{Code: "int x;\n"}},
		{"empty code", `{"event":"code_update","data":""}`, CodeUpdate{}},
		{"cursor object", `{"event":"cursor_update","data":{"line":3,"ch":7}}`, CursorUpdate{Cursor: []byte(`{"line":3,"ch":7}`)}},
		{"cursor null", `{"event":"cursor_update","data":null}`, CursorUpdate{}},
		{"cursor missing", `{"event":"cursor_update"}`, CursorUpdate{}},
		{"chat", `{"event":"chat_message","data":"hi"}`, ChatMessage{Text: "hi"}},
		{"chat missing", `{"event":"chat_message"}`, ChatMessage{}},
		{"translate", `{"event":"translate_request","data":{"text":"The cat"}}`, TranslateRequest{Text: "The cat"}},
		{"translate bare string", `{"event":"translate_request","data":"The cat"}`, TranslateRequest{}},
		{"workbench", `{"event":"request_workbench"}`, RequestWorkbench{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Type(), got.Type())
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		err   error
	}{
		{"not json", `{"event":`, cnst.ErrMalformedFrame},
		{"array", `["set_username","x"]`, cnst.ErrMalformedFrame},
		{"missing event", `{"data":"x"}`, cnst.ErrMalformedFrame},
		{"numeric event", `{"event":1}`, cnst.ErrMalformedFrame},
		{"code not string", `{"event":"code_update","data":{"code":"x"}}`, cnst.ErrMalformedFrame},
		{"unknown", `{"event":"launch_rockets"}`, cnst.ErrUnknownEvent},
		{"disconnect from client", `{"event":"disconnect"}`, cnst.ErrUnknownEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.frame))
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
