package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"controlling_resistances/internal/thermal"
)

// Row labels of the control sheet.
const (
	LabelIP       = "IP"
	LabelAlpha    = "alpha"
	LabelAlphaOff = "alpha_off"
	LabelTMax     = "t_max"
	LabelSchedule = "Secuencia"
)

// Measurements turns a measurement sheet into one series per value column.
// The first row is a header and column 0 holds the time label. Empty cells are
// missing samples; trailing missing samples of a column are dropped. A cell
// that is not a number is also a missing sample and is reported in bad.
func Measurements(rows [][]string, intervalSec int) (series []thermal.Series, bad []*CellError) {
	if len(rows) < 2 {
		return nil, nil
	}
	width := 0
	for _, row := range rows[1:] {
		width = max(width, len(row)-1)
	}

	columns := make([][]*float64, width)
	for i, row := range rows[1:] {
		for c := 1; c <= width; c++ {
			var cell string
			if c < len(row) {
				cell = row[c]
			}
			v, ok, err := parseNumber(cell)
			if err != nil {
				bad = append(bad, &CellError{Row: i + 2, Column: c + 1, Value: cell, Err: err})
				ok = false
			}
			if ok {
				columns[c-1] = append(columns[c-1], &v)
			} else {
				columns[c-1] = append(columns[c-1], nil)
			}
		}
	}

	series = make([]thermal.Series, width)
	for c, values := range columns {
		end := len(values)
		for end > 0 && values[end-1] == nil {
			end--
		}
		series[c] = thermal.NewSeries(intervalSec, values[:end])
	}
	return series, bad
}

// Heater is one controllable resistance of the control sheet.
type Heater struct {
	Index   int            `json:"index"`
	Address string         `json:"address"`
	Params  thermal.Params `json:"params"`
	column  int
}

// ControlPlan is everything live control needs from the control sheet.
type ControlPlan struct {
	Heaters []Heater
	// Coarse holds one row per schedule step, one column per heater.
	Coarse   [][]bool
	Schedule thermal.Schedule
}

// ParseControl reads the label blocks of a control sheet. Every row from the
// schedule marker on, the marker row included, is a schedule step held for
// stepSec seconds. A missing alpha_off row means alpha_off equals alpha.
func ParseControl(rows [][]string, ambient float64, stepSec int) (ControlPlan, error) {
	labels := map[string][]string{}
	var steps [][]string
	inSchedule := false
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		label := strings.TrimSpace(row[0])
		if strings.EqualFold(label, LabelSchedule) {
			inSchedule = true
		}
		if inSchedule {
			steps = append(steps, row)
			continue
		}
		for _, known := range []string{LabelIP, LabelAlpha, LabelAlphaOff, LabelTMax} {
			if strings.EqualFold(label, known) {
				labels[known] = row
			}
		}
	}

	ips, ok := labels[LabelIP]
	if !ok {
		return ControlPlan{}, &MissingConfigurationError{Label: LabelIP, Heater: -1}
	}

	var plan ControlPlan
	for c := 1; c < len(ips); c++ {
		addr := strings.TrimSpace(ips[c])
		if addr == "" {
			continue
		}
		idx := c - 1
		alpha, err := requiredValue(labels, LabelAlpha, c, idx)
		if err != nil {
			return ControlPlan{}, err
		}
		tMax, err := requiredValue(labels, LabelTMax, c, idx)
		if err != nil {
			return ControlPlan{}, err
		}
		alphaOff := alpha
		if row, ok := labels[LabelAlphaOff]; ok && c < len(row) {
			v, present, err := parseNumber(row[c])
			if err != nil {
				return ControlPlan{}, fmt.Errorf("%s for heater %d: %w", LabelAlphaOff, idx, err)
			}
			if present {
				alphaOff = v
			}
		}

		params := thermal.Params{AlphaOn: alpha, AlphaOff: alphaOff, TMax: tMax, TAmbient: ambient}
		if err := params.Validate(); err != nil {
			return ControlPlan{}, fmt.Errorf("heater %d: %w", idx, err)
		}
		plan.Heaters = append(plan.Heaters, Heater{Index: idx, Address: addr, Params: params, column: c})
	}
	if len(plan.Heaters) == 0 {
		return ControlPlan{}, &MissingConfigurationError{Label: LabelIP, Heater: -1}
	}
	if len(steps) == 0 {
		return ControlPlan{}, &MissingConfigurationError{Label: LabelSchedule, Heater: -1}
	}

	plan.Coarse = make([][]bool, len(steps))
	for i, row := range steps {
		plan.Coarse[i] = make([]bool, len(plan.Heaters))
		for h, heater := range plan.Heaters {
			plan.Coarse[i][h] = heater.column < len(row) && strings.TrimSpace(row[heater.column]) != ""
		}
	}
	plan.Schedule = thermal.ExpandSchedule(plan.Coarse, stepSec)
	return plan, nil
}

// Params returns the parameters of every heater in plan order.
func (p ControlPlan) Params() []thermal.Params {
	out := make([]thermal.Params, len(p.Heaters))
	for i, h := range p.Heaters {
		out[i] = h.Params
	}
	return out
}

func requiredValue(labels map[string][]string, label string, column, heater int) (float64, error) {
	row, ok := labels[label]
	if !ok {
		return 0, &MissingConfigurationError{Label: label, Heater: -1}
	}
	if column >= len(row) {
		return 0, &MissingConfigurationError{Label: label, Heater: heater}
	}
	v, present, err := parseNumber(row[column])
	if err != nil {
		return 0, fmt.Errorf("%s for heater %d: %w", label, heater, err)
	}
	if !present {
		return 0, &MissingConfigurationError{Label: label, Heater: heater}
	}
	return v, nil
}

// parseNumber accepts a decimal point or a decimal comma, with the other
// character as a thousands separator: "1.234,5", "1,234.5" and "21,5" all
// parse. A lone separator is decimal, so "1,234" is 1.234. An empty cell is
// reported as absent.
func parseNumber(cell string) (float64, bool, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(normalizeDecimal(cell), 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func normalizeDecimal(cell string) string {
	dot, comma := strings.LastIndex(cell, "."), strings.LastIndex(cell, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(cell, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(cell, ",", "")
	case comma >= 0:
		if strings.Count(cell, ",") > 1 {
			return strings.ReplaceAll(cell, ",", "")
		}
		return strings.Replace(cell, ",", ".", 1)
	case strings.Count(cell, ".") > 1:
		return strings.ReplaceAll(cell, ".", "")
	}
	return cell
}
