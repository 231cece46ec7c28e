package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"controlling_resistances/internal/logger"
	"controlling_resistances/internal/metrics"
	"controlling_resistances/internal/models"
	"controlling_resistances/internal/repository"
	"controlling_resistances/internal/thermal"

	"github.com/google/uuid"
)

var errEmptySchedule = errors.New("schedule is empty")

// MaxSimulatedSeconds caps one offline replay at a week of one-second updates.
const MaxSimulatedSeconds = 7 * 24 * 3600

// ErrSimulationTooLong rejects replays longer than MaxSimulatedSeconds.
var ErrSimulationTooLong = fmt.Errorf("simulation longer than %d seconds", MaxSimulatedSeconds)

// SimulatedSeconds is the length of a replay of entries commands held for
// stepSec seconds each; zero stepSec means 1.
func SimulatedSeconds(entries, stepSec int) (int, error) {
	if stepSec <= 0 {
		stepSec = 1
	}
	if stepSec > MaxSimulatedSeconds || entries > MaxSimulatedSeconds/stepSec {
		return 0, ErrSimulationTooLong
	}
	return entries * stepSec, nil
}

type EstimationService struct {
	fit       thermal.FitConfig
	eventRepo repository.EventRepo // optional
	log       *logger.Logger
}

func NewEstimationService(fit thermal.FitConfig, eventRepo repository.EventRepo, log *logger.Logger) *EstimationService {
	if log == nil {
		log = logger.Nop()
	}
	return &EstimationService{fit: fit, eventRepo: eventRepo, log: log.Named("estimation")}
}

// EstimateAll fits every series independently. A heater whose series cannot
// be fitted is reported as skipped and never stops the batch.
func (s *EstimationService) EstimateAll(ctx context.Context, ambient float64, series []thermal.Series) []models.HeaterEstimate {
	selector := thermal.SplitSelector{Ambient: ambient, Fit: s.fit}
	out := make([]models.HeaterEstimate, 0, len(series))
	fitted := 0

	for i, ser := range series {
		res := models.HeaterEstimate{Heater: i, TAmbient: ambient}
		est, err := selector.Estimate(ser)
		if err != nil {
			res.Skipped = true
			res.Error = err.Error()
			metrics.Fit("skipped")
			s.log.Warnw("heater_fit_skipped", "heater", i, "err", err)
			out = append(out, res)
			continue
		}
		fitted++

		res.AlphaOn = est.Params.AlphaOn
		res.AlphaOff = est.Params.AlphaOff
		res.TMax = est.Params.TMax
		res.KOn = est.Heating.K
		res.KOff = thermal.KFromAlpha(est.Params.AlphaOff)
		res.Split = est.Split
		res.SplitAdvanced = est.Advanced
		res.CoolingApproximated = est.CoolingApproximated
		res.HeatingR2 = est.Heating.RSquared
		res.CoolingR2 = est.Cooling.RSquared
		res.Iterations = est.Heating.Iterations + est.Cooling.Iterations

		if est.Advanced {
			s.log.Warnw("heater_split_advanced", "heater", i, "peak", est.Peak, "split", est.Split)
		}
		if est.CoolingApproximated {
			metrics.Fit("approximated")
			s.log.Warnw("heater_cooling_approximated", "heater", i, "alpha_off", res.AlphaOff, "err", est.CoolingErr)
		} else {
			metrics.Fit("ok")
		}
		s.log.Infow("heater_fit",
			"heater", i,
			"alpha_on", res.AlphaOn,
			"alpha_off", res.AlphaOff,
			"t_max", res.TMax,
			"split", res.Split,
		)
		out = append(out, res)
	}

	if s.eventRepo != nil && len(series) > 0 {
		err := s.eventRepo.Append(ctx, models.HeaterEvent{
			EventID:     uuid.NewString(),
			OccurredAt:  time.Now().UTC(),
			Type:        models.EventEstimate,
			Description: fmt.Sprintf("Estimated %d of %d heaters", fitted, len(series)),
			Metadata:    map[string]any{"heaters": len(series), "fitted": fitted, "ambient_c": ambient},
		})
		if err != nil {
			s.log.Errorw("event_append_failed", "type", models.EventEstimate, "err", err)
		}
	}
	return out
}

// Simulate replays one heater's schedule from p.InitialC.
func (s *EstimationService) Simulate(p SimulateParams) (thermal.Trajectory, error) {
	if len(p.Schedule) == 0 {
		return nil, errEmptySchedule
	}
	if _, err := SimulatedSeconds(len(p.Schedule), p.StepSec); err != nil {
		return nil, err
	}
	alphaOff := p.AlphaOff
	if alphaOff == 0 {
		alphaOff = p.AlphaOn
	}
	params := thermal.Params{AlphaOn: p.AlphaOn, AlphaOff: alphaOff, TMax: p.TMax, TAmbient: p.AmbientC}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	coarse := make([][]bool, len(p.Schedule))
	for i, on := range p.Schedule {
		coarse[i] = []bool{on}
	}
	step := p.StepSec
	if step <= 0 {
		step = 1
	}
	commands := thermal.ExpandSchedule(coarse, step).Column(0)
	return thermal.Simulate(p.InitialC, commands, params), nil
}

// Reconstruct models each fitted series on its own grid, heater on up to the
// split and off afterwards. Skipped heaters come back all-missing.
func Reconstruct(series []thermal.Series, estimates []models.HeaterEstimate) []thermal.Series {
	out := make([]thermal.Series, len(series))
	for i, ser := range series {
		modeled := thermal.Series{IntervalSec: ser.IntervalSec, Samples: make([]thermal.Sample, ser.Len())}
		for j, smp := range ser.Samples {
			modeled.Samples[j] = thermal.Sample{OffsetSec: smp.OffsetSec, Missing: true}
		}
		if i < len(estimates) && !estimates[i].Skipped {
			est := estimates[i]
			params := thermal.Params{AlphaOn: est.AlphaOn, AlphaOff: est.AlphaOff, TMax: est.TMax, TAmbient: est.TAmbient}
			modeled = thermal.Reconstruct(ser, thermal.SwitchOffCommands(ser.Len(), est.Split), params, thermal.ReconstructOptions{})
		}
		out[i] = modeled
	}
	return out
}

// WriteReconstruction writes observed and modeled temperatures side by side,
// one row per grid point. Missing values are left empty.
func (s *EstimationService) WriteReconstruction(w io.Writer, series []thermal.Series, estimates []models.HeaterEstimate) error {
	modeled := Reconstruct(series, estimates)

	rows := 0
	header := []string{"offset_sec"}
	for i, ser := range series {
		header = append(header, fmt.Sprintf("observed_%d", i), fmt.Sprintf("modeled_%d", i))
		rows = max(rows, ser.Len())
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for j := 0; j < rows; j++ {
		record := []string{""}
		for i, ser := range series {
			if j < ser.Len() {
				record[0] = strconv.Itoa(ser.Samples[j].OffsetSec)
			}
			record = append(record, cell(ser, j), cell(modeled[i], j))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", j, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(ser thermal.Series, j int) string {
	if j >= ser.Len() || ser.Samples[j].Missing {
		return ""
	}
	return strconv.FormatFloat(ser.Samples[j].TempC, 'f', 3, 64)
}
