package models

// HeaterEstimate is the fit report of one heater series.
type HeaterEstimate struct {
	Heater              int     `json:"heater"`
	Skipped             bool    `json:"skipped"`
	Error               string  `json:"error,omitempty"`
	AlphaOn             float64 `json:"alpha_on"`
	AlphaOff            float64 `json:"alpha_off"`
	TMax                float64 `json:"t_max"`
	TAmbient            float64 `json:"t_ambient"`
	KOn                 float64 `json:"k_on"`
	KOff                float64 `json:"k_off"`
	Split               int     `json:"split"`
	SplitAdvanced       bool    `json:"split_advanced"`
	CoolingApproximated bool    `json:"cooling_approximated"`
	HeatingR2           float64 `json:"heating_r2"`
	CoolingR2           float64 `json:"cooling_r2"`
	Iterations          int     `json:"iterations"`
}
