package service

import "time"

// LogFilter supports history filtering by time range, type and heater.
type LogFilter struct {
	From   time.Time // inclusive; zero means no lower bound
	To     time.Time // inclusive; zero means no upper bound
	Type   string    // "", "START", "STOP", "SCHEDULE_DONE", "SAFETY_OVERRIDE", "ACTUATOR_FAILURE", "ESTIMATE"
	Heater *int      // nil means every heater and schedule-wide events
	Limit  int       // most recent N; zero means all
}

// SimulateParams describes an offline single-heater replay.
type SimulateParams struct {
	InitialC float64
	AlphaOn  float64
	AlphaOff float64 // zero means AlphaOn
	TMax     float64
	AmbientC float64
	// Schedule holds one command per StepSec seconds.
	Schedule []bool
	StepSec  int // zero means 1
}

// ControlStatus is a snapshot of the live schedule.
type ControlStatus struct {
	Running    bool      `json:"running"`
	Completed  bool      `json:"completed"`
	Tick       int       `json:"tick"`
	Total      int       `json:"total"`
	Heaters    int       `json:"heaters"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}
