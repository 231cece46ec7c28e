package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"controlling_resistances/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid   = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid     = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeOrder    = "'from' must be <= 'to'"
	errHeaterInvalid = "invalid 'heater'; must be a non-negative integer"
	errLimitInvalid  = "invalid 'limit'; must be between 1 and 1000"
	errListLogs      = "failed to load logs"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// logFilterFromQuery builds a LogFilter from the request query. On failure
// the returned string is the client-facing message.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, string) {
	f := service.LogFilter{Type: strings.ToUpper(strings.TrimSpace(c.Query("type")))}

	if qs := c.Query("from"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errFromInvalid
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, errToInvalid
		}
		// date-only upper bound covers the whole day
		if isDateOnly(qs) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, errRangeOrder
	}

	if qs := c.Query("heater"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n < 0 {
			return f, errHeaterInvalid
		}
		f.Heater = &n
	}
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n < 1 || n > service.MaxLogLimit {
			return f, errLimitInvalid
		}
		f.Limit = n
	}
	return f, ""
}

// @Summary      List logs
// @Description  Filter control events by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'), type and heater. A date-only 'to' is end-of-day inclusive. With 'limit' only the most recent events are returned, still oldest first.
// @Tags         logs
// @Produce      json
// @Param        from    query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to      query   string  false  "End of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). Date-only treated as end of day."  example(2025-08-31)
// @Param        type    query   string  false  "Event type"  Enums(START,STOP,SCHEDULE_DONE,SAFETY_OVERRIDE,ACTUATOR_FAILURE,ESTIMATE)
// @Param        heater  query   int     false  "Only events of this heater index"  minimum(0)
// @Param        limit   query   int     false  "Most recent N events"  minimum(1)  maximum(1000)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter, msg := logFilterFromQuery(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListLogs, "logs_list_failed", err,
			"from", filter.From, "to", filter.To, "type", filter.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// parseQueryTime accepts RFC3339, "YYYY-MM-DD HH:MM:SS" or "YYYY-MM-DD" and returns UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
