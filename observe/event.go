package observe

import "time"

type Kind string

type Status string

const (
	KindAuth      Kind = "auth"
	KindPipeline  Kind = "pipeline"
	KindProvider  Kind = "provider"
	KindTool      Kind = "tool"
	KindRateLimit Kind = "rate_limit"
	KindCustom    Kind = "custom"
)

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event is one observability record. RequestID ties every event from a
// single request envelope dispatch together; CredentialID and
// ConnectionID are populated once a bearer has resolved.
type Event struct {
	ID           string         `json:"id,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	RequestID    string         `json:"requestId,omitempty"`
	CredentialID string         `json:"credentialId,omitempty"`
	ConnectionID string         `json:"connectionId,omitempty"`
	SpanID       string         `json:"spanId,omitempty"`
	ParentSpanID string         `json:"parentSpanId,omitempty"`
	Kind         Kind           `json:"kind"`
	Status       Status         `json:"status,omitempty"`
	Name         string         `json:"name,omitempty"`
	ToolName     string         `json:"toolName,omitempty"`
	Message      string         `json:"message,omitempty"`
	Error        string         `json:"error,omitempty"`
	DurationMs   int64          `json:"durationMs,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Kind == "" {
		e.Kind = KindCustom
	}
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
}
