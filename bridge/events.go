package bridge

import (
	"time"

	"fdsbridge/scenario"
)

// EventType identifies the kind of event emitted by the Bridge.
type EventType int

const (
	// Connection events
	EventConnectionUp EventType = iota + 1
	EventConnectionDown

	// Protocol events
	EventAnswerStatus

	// Scenario events
	EventGeometrySynced
	EventNavigate
)

// Event is the envelope emitted on the Bridge's EventBus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   interface{}
}

// ConnectionEvent is emitted on every CAD link transition.
type ConnectionEvent struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
	Abandoned int    `json:"abandoned,omitempty"`
}

// AnswerStatusEvent is broadcast when a correlated answer arrives, so UI
// flows waiting on an export/import can finish.
type AnswerStatusEvent struct {
	RequestID string `json:"requestID"`
	Method    string `json:"method"`
	Status    string `json:"status"`
}

// GeometrySyncedEvent is emitted after an export has been applied.
type GeometrySyncedEvent struct {
	ScenarioID string                `json:"scenarioId"`
	ACFile     string                `json:"acFile"`
	ACPath     string                `json:"acPath"`
	Counts     map[scenario.Kind]int `json:"counts"`
	Failed     []scenario.Kind       `json:"failed,omitempty"`
}

// NavigateEvent asks the editor front-end to focus an element.
type NavigateEvent struct {
	Target string        `json:"target"`
	Kind   scenario.Kind `json:"kind"`
	Index  int           `json:"index"`
	IDAC   int64         `json:"idAC"`
}
