package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resctl_control_ticks_total",
		Help: "Control loop ticks executed",
	})
	tickLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resctl_control_tick_lag_seconds",
		Help:    "Delay between a tick's target time and its start",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})
	heaterTemp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resctl_heater_temperature_celsius",
		Help: "Modeled heater temperature",
	}, []string{"heater"})
	heaterOn = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resctl_heater_on",
		Help: "Effective heater command (1 on, 0 off)",
	}, []string{"heater"})
	overrides = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resctl_safety_overrides_total",
		Help: "Ticks where the safety governor forced a heater off",
	}, []string{"heater"})
	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resctl_actuator_commands_total",
		Help: "Actuator commands by outcome",
	}, []string{"heater", "result"})
	fits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resctl_fits_total",
		Help: "Per-heater estimations by outcome",
	}, []string{"outcome"})
)

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func ObserveTick(lagSeconds float64) {
	ticks.Inc()
	tickLag.Observe(lagSeconds)
}

func SetHeater(heater int, tempC float64, on bool) {
	h := strconv.Itoa(heater)
	heaterTemp.WithLabelValues(h).Set(tempC)
	v := 0.0
	if on {
		v = 1
	}
	heaterOn.WithLabelValues(h).Set(v)
}

func SafetyOverride(heater int) {
	overrides.WithLabelValues(strconv.Itoa(heater)).Inc()
}

func ActuatorCommand(heater int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	commands.WithLabelValues(strconv.Itoa(heater), result).Inc()
}

// Fit counts one estimation; outcome is "ok", "approximated" or "skipped".
func Fit(outcome string) {
	fits.WithLabelValues(outcome).Inc()
}
