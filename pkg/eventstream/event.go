package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeAnswerRecorded is emitted after a chat turn is answered and
	// persisted.
	EventTypeAnswerRecorded = "mediguide.answer.recorded"
)

// AnswerRecordedEvent is a transport-neutral event payload for an answered
// chat turn.
type AnswerRecordedEvent struct {
	SchemaVersion  int       `json:"schema_version"`
	EventType      string    `json:"event_type"`
	EventID        string    `json:"event_id"`
	EmittedAt      time.Time `json:"emitted_at"`
	Username       string    `json:"username"`
	ConversationID string    `json:"conversation_id"`
	Query          string    `json:"query"`
	Answer         string    `json:"answer"`
	Sources        []string  `json:"sources,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
}
