package models

import "time"

// HeaterState is the live snapshot of one heater during schedule execution.
type HeaterState struct {
	Heater     int       `json:"heater"`
	Address    string    `json:"address,omitempty"`
	TempC      float64   `json:"temp_c"`    // modeled °C
	Commanded  bool      `json:"commanded"` // schedule says on
	On         bool      `json:"on"`        // after the safety governor
	Overridden bool      `json:"overridden"`
	Tick       int       `json:"tick"` // seconds into the schedule
	Running    bool      `json:"running"`
	UpdatedAt  time.Time `json:"updated_at"`
}
