package models

import "time"

// Event types of the control log.
const (
	EventStart           = "START"
	EventStop            = "STOP"
	EventScheduleDone    = "SCHEDULE_DONE"
	EventSafetyOverride  = "SAFETY_OVERRIDE"
	EventActuatorFailure = "ACTUATOR_FAILURE"
	EventEstimate        = "ESTIMATE"
)

// HeaterEvent is a single log entry. Heater is nil for schedule-wide events.
type HeaterEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Heater      *int      `json:"heater,omitempty"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
