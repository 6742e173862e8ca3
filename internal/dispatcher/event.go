package dispatcher

import (
	"encoding/json"
	"fmt"

	"github.com/amoylab/workbench/internal/common/cnst"
	"github.com/tidwall/gjson"
)

// Event is one decoded inbound event
type Event interface {
	Type() cnst.EventType
}

type (
	// SetUsername announces the connection's display name
	SetUsername struct{ Name string }
	// CodeUpdate replaces the shared buffer
	CodeUpdate struct{ Code string }
	// CursorUpdate reports the sender's cursor; a nil Cursor hides it
	CursorUpdate struct{ Cursor json.RawMessage }
	// ChatMessage posts a chat line
	ChatMessage struct{ Text string }
	// TranslateRequest asks for a translation of Text
	TranslateRequest struct{ Text string }
	// RequestWorkbench asks to be redirected to the workbench page
	RequestWorkbench struct{}
	// Disconnect is raised by the transport when the connection closes
	Disconnect struct{}
)

func (SetUsername) Type() cnst.EventType      { return cnst.EventSetUsername }
func (CodeUpdate) Type() cnst.EventType       { return cnst.EventCodeUpdate }
func (CursorUpdate) Type() cnst.EventType     { return cnst.EventCursorUpdate }
func (ChatMessage) Type() cnst.EventType      { return cnst.EventChatMessage }
func (TranslateRequest) Type() cnst.EventType { return cnst.EventTranslateRequest }
func (RequestWorkbench) Type() cnst.EventType { return cnst.EventRequestWorkbench }
func (Disconnect) Type() cnst.EventType       { return cnst.EventDisconnect }

// Decode parses an inbound frame of the form {"event": name, "data": payload}.
//
// Payloads of the wrong shape degrade to empty values, except for code
// updates: a non-string buffer is rejected rather than wiping the document.
func Decode(frame []byte) (Event, error) {
	if !gjson.ValidBytes(frame) {
		return nil, cnst.ErrMalformedFrame
	}
	root := gjson.ParseBytes(frame)
	name := root.Get("event")
	if !root.IsObject() || name.Type != gjson.String {
		return nil, cnst.ErrMalformedFrame
	}
	data := root.Get("data")

	switch cnst.EventType(name.Str) {
	case cnst.EventSetUsername:
		return SetUsername{Name: stringOrEmpty(data)}, nil
	case cnst.EventCodeUpdate:
		if data.Type != gjson.String {
			return nil, fmt.Errorf("%w: code_update payload must be a string", cnst.ErrMalformedFrame)
		}
		return CodeUpdate{Code: data.Str}, nil
	case cnst.EventCursorUpdate:
		if !data.Exists() || data.Type == gjson.Null {
			return CursorUpdate{}, nil
		}
		return CursorUpdate{Cursor: json.RawMessage(data.Raw)}, nil
	case cnst.EventChatMessage:
		return ChatMessage{Text: stringOrEmpty(data)}, nil
	case cnst.EventTranslateRequest:
		return TranslateRequest{Text: stringOrEmpty(data.Get("text"))}, nil
	case cnst.EventRequestWorkbench:
		return RequestWorkbench{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", cnst.ErrUnknownEvent, name.Str)
	}
}

func stringOrEmpty(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}
