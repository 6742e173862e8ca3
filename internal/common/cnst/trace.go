package cnst

// Tracer names used across the services
const (
	// TraceDispatcher is the tracer name for protocol event handling
	TraceDispatcher = "workbench/dispatcher"
	// TraceRelay is the tracer name for cross-instance relay handling
	TraceRelay = "workbench/relay"
)

// Common span names and prefixes
const (
	// SpanEventPrefix prefixes spans for handling inbound events
	SpanEventPrefix = "workbench.event."
	// SpanRelayPublish represents publishing a local event to peers
	SpanRelayPublish = "workbench.relay.publish"
	// SpanRelayApply represents applying a peer-originated event
	SpanRelayApply = "workbench.relay.apply"
)

// Common attribute keys
const (
	AttrConnID      = "workbench.conn_id"
	AttrEvent       = "workbench.event"
	AttrIdentified  = "workbench.identified"
	AttrRelayOrigin = "workbench.relay.origin"
)
