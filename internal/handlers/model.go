package handlers

import (
	"fmt"
	"net/http"

	"controlling_resistances/internal/service"
	"controlling_resistances/internal/thermal"

	"github.com/gin-gonic/gin"
)

const (
	maxSeries = 32
	// a week of five-minute samples, with room to spare
	maxSamples = 4096
)

// EstimateRequest is the body of /estimate: one column of samples per heater,
// null for a missing sample.
type EstimateRequest struct {
	AmbientC    *float64     `json:"ambient_c" binding:"required" example:"21.5"`
	IntervalSec int          `json:"interval_sec" binding:"required,min=1" example:"300"`
	Series      [][]*float64 `json:"series" binding:"required,min=1"`
}

// SimulateRequest is the body of /simulate.
type SimulateRequest struct {
	// Defaults to ambient_c.
	InitialC *float64 `json:"initial_c,omitempty" example:"21.5"`
	AlphaOn  float64  `json:"alpha_on" binding:"required" example:"0.002"`
	// Zero means alpha_on.
	AlphaOff float64  `json:"alpha_off,omitempty" example:"0.0015"`
	TMax     float64  `json:"t_max" binding:"required" example:"400"`
	AmbientC *float64 `json:"ambient_c" binding:"required" example:"21.5"`
	Schedule []bool   `json:"schedule" binding:"required,min=1"`
	// Seconds each schedule entry is held; defaults to 1.
	StepSec int `json:"step_sec,omitempty" binding:"min=0" example:"300"`
}

// @Summary      Estimate heater parameters
// @Description  Fits alpha_on, alpha_off and T_max per heater. A heater that cannot be fitted is reported with skipped=true and the reason. At most 32 series of 4096 samples.
// @Tags         model
// @Accept       json
// @Produce      json
// @Param        body  body      EstimateRequest  true  "Measurement series"
// @Success      200   {object}  map[string]interface{}  "count, heaters"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/estimate [post]
// @Security     BearerAuth
func (h *Handler) estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if len(req.Series) > maxSeries {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + "too many series"})
		return
	}
	for i, values := range req.Series {
		if len(values) > maxSamples {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%sseries %d has more than %d samples", errInvalidBodyPref, i, maxSamples)})
			return
		}
	}
	series := make([]thermal.Series, len(req.Series))
	for i, values := range req.Series {
		series[i] = thermal.NewSeries(req.IntervalSec, values)
	}
	results := h.services.Estimation.EstimateAll(c.Request.Context(), *req.AmbientC, series)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"heaters": results,
	})
}

// @Summary      Simulate one heater
// @Description  Replays a schedule through the one-second update and returns the trajectory, initial temperature first. At most 604800 simulated seconds.
// @Tags         model
// @Accept       json
// @Produce      json
// @Param        body  body      SimulateRequest  true  "Parameters and schedule"
// @Success      200   {object}  map[string]interface{}  "seconds, final_c, trajectory"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/simulate [post]
// @Security     BearerAuth
func (h *Handler) simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if _, err := service.SimulatedSeconds(len(req.Schedule), req.StepSec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	initial := *req.AmbientC
	if req.InitialC != nil {
		initial = *req.InitialC
	}
	traj, err := h.services.Estimation.Simulate(service.SimulateParams{
		InitialC: initial,
		AlphaOn:  req.AlphaOn,
		AlphaOff: req.AlphaOff,
		TMax:     req.TMax,
		AmbientC: *req.AmbientC,
		Schedule: req.Schedule,
		StepSec:  req.StepSec,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"seconds":    len(traj) - 1,
		"final_c":    traj.Last(),
		"trajectory": traj,
	})
}
