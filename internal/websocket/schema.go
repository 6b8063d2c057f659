package websocket

import "github.com/lumenlearn/lumen-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionMetrics Action = "metrics"
	ActionPing    Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action  Action               `json:"action"`
	Metrics *model.MetricsUpdate `json:"metrics,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventMetricsAck Event = "metrics_ack"
	EventAdapted    Event = "adapted"
	EventPong       Event = "pong"
)

// MetricsAckResponse confirms a metric update with the current method. No
// adaptation fired when Adapted is false.
type MetricsAckResponse struct {
	Event   Event                    `json:"event"`
	Adapted bool                     `json:"adapted"`
	Metrics model.PerformanceMetrics `json:"metrics"`
	Method  model.TeachingMethod     `json:"method"`
}

// AdaptedResponse announces a teaching-method switch, either from this
// connection's update or from another instance via the event channel.
type AdaptedResponse struct {
	Event      Event            `json:"event"`
	Adaptation model.Adaptation `json:"adaptation"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
