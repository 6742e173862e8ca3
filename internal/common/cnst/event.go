package cnst

// EventType is the name carried in the "event" field of every frame
type EventType string

// Client -> server events
const (
	EventSetUsername      EventType = "set_username"
	EventCodeUpdate       EventType = "code_update"
	EventCursorUpdate     EventType = "cursor_update"
	EventChatMessage      EventType = "chat_message"
	EventTranslateRequest EventType = "translate_request"
	EventRequestWorkbench EventType = "request_workbench"

	// EventDisconnect is raised by the transport, never sent by a client.
	EventDisconnect EventType = "disconnect"
)

// EventPresence is a heartbeat exchanged between instances over the relay
const EventPresence EventType = "presence"

// Server -> client events
const (
	EventInitState         EventType = "init_state"
	EventCursorRemove      EventType = "cursor_remove"
	EventTranslationResult EventType = "translation_result"
	EventRedirect          EventType = "redirect"
)

func (e EventType) String() string {
	return string(e)
}
