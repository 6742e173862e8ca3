package cnst

import "errors"

var (
	// ErrAlreadyJoined is returned when a connection announces itself twice under strict join
	ErrAlreadyJoined = errors.New("connection already joined")
	// ErrConnClosed is returned when a frame is queued on a closed connection
	ErrConnClosed = errors.New("connection closed")
	// ErrQueueFull is returned when a connection's outbound queue cannot take more frames
	ErrQueueFull = errors.New("outbound queue is full")
	// ErrDuplicateConn is returned when a connection id is registered twice in the hub
	ErrDuplicateConn = errors.New("connection already registered")
	// ErrHubClosed is returned when registering a connection on a hub that was shut down
	ErrHubClosed = errors.New("hub closed")
	// ErrUnknownEvent is returned when a frame names an event the server does not handle
	ErrUnknownEvent = errors.New("unknown event")
	// ErrMalformedFrame is returned when a frame is not a JSON object with an event name
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrRelayClosed is returned when publishing on a closed relay
	ErrRelayClosed = errors.New("relay closed")
)
