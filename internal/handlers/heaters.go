package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"controlling_resistances/internal/service"
	"controlling_resistances/internal/sheet"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusStarted = "started"
	statusStopped = "stopped"

	errStartControl    = "failed to start schedule"
	errStopControl     = "failed to stop schedule"
	errListHeaters     = "failed to load heaters"
	errGetHeater       = "failed to load heater"
	errInvalidHeaterID = "invalid heater id"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and the current control snapshot.
func (h *Handler) respondWithStatus(c *gin.Context, status string) {
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"control": h.services.Control.Status(),
	})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List heaters
// @Description  Latest persisted state of every heater driven so far.
// @Tags         heaters
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, heaters"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heaters [get]
// @Security     BearerAuth
func (h *Handler) listHeaters(c *gin.Context) {
	states, err := h.services.Monitoring.Heaters(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListHeaters, "heaters_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(states),
		"heaters": states,
	})
}

// @Summary      Get heater
// @Tags         heaters
// @Produce      json
// @Param        id   path      int  true  "Heater index (0-based)"
// @Success      200  {object}  models.HeaterState
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heaters/{id} [get]
// @Security     BearerAuth
func (h *Handler) getHeater(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidHeaterID})
		return
	}
	st, err := h.services.Monitoring.Heater(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrHeaterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errGetHeater, "heater_get_failed", err, "heater", id)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Start schedule
// @Description  Loads the control sheet and starts driving the heaters in real time.
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, control"
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/control/start [post]
// @Security     BearerAuth
func (h *Handler) startControl(c *gin.Context) {
	err := h.services.Control.Start(c.Request.Context())
	switch {
	case err == nil:
		h.respondWithStatus(c, statusStarted)
	case errors.Is(err, service.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, sheet.ErrMissingConfiguration):
		if h.log != nil {
			h.log.Warnw("control_start_rejected", "err", err)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errStartControl, "control_start_failed", err)
	}
}

// @Summary      Stop schedule
// @Description  Switches every heater off and waits for pending commands.
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, control"
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/control/stop [post]
// @Security     BearerAuth
func (h *Handler) stopControl(c *gin.Context) {
	err := h.services.Control.Stop(c.Request.Context())
	switch {
	case err == nil:
		h.respondWithStatus(c, statusStopped)
	case errors.Is(err, service.ErrNotRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errStopControl, "control_stop_failed", err)
	}
}

// @Summary      Schedule status
// @Tags         control
// @Produce      json
// @Success      200  {object}  service.ControlStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/control/status [get]
// @Security     BearerAuth
func (h *Handler) controlStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Control.Status())
}
