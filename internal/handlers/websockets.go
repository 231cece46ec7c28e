package handlers

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"controlling_resistances/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 1 << 12 // 4 KB
	defaultInterval = time.Second
	maxInterval     = 10 * time.Second

	// an unchanged snapshot is still re-sent after this many polls
	resendEvery = 30
)

const wsTypeHeaters = "heaters"

type wsEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Any origin may subscribe to the read-only stream.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// heaterStream polls the persisted heater states for one client and writes
// a frame whenever the (optionally filtered) snapshot changes.
type heaterStream struct {
	h        *Handler
	conn     *websocket.Conn
	only     map[int]bool // nil streams every heater
	last     []models.HeaterState
	unsent   int
	interval time.Duration
}

// @Summary      Live heater stream
// @Description  WebSocket. Sends {"type":"heaters","data":[...]} on connect and whenever the snapshot changes.
// @Tags         heaters
// @Param        interval  query  string  false  "Poll interval, e.g. 500ms (max 10s)"
// @Param        heaters   query  string  false  "Comma-separated heater indices to include"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	only, err := parseHeaterSet(c.Query("heaters"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	s := &heaterStream{h: h, conn: conn, only: only, interval: parseInterval(c)}
	s.serve(c.Request.Context())
}

func (s *heaterStream) serve(ctx context.Context) {
	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go s.drain(closed)

	poll := time.NewTicker(s.interval)
	defer poll.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := s.push(ctx); err != nil {
		s.debug("ws_initial_write_failed", err)
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.debug("ws_ping_failed", err)
				return
			}
		case <-poll.C:
			if err := s.push(ctx); err != nil {
				s.debug("ws_write_failed", err)
				return
			}
		}
	}
}

// drain reads until the client goes away so control frames are processed.
func (s *heaterStream) drain(closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.debug("ws_read_closed", err)
			return
		}
	}
}

// push writes the current snapshot unless it equals the last one sent.
func (s *heaterStream) push(ctx context.Context) error {
	states, err := s.h.services.Monitoring.Heaters(ctx)
	if err != nil {
		if s.h.log != nil {
			s.h.log.Errorw("ws_heaters_failed", "err", err)
		}
		return err
	}
	if s.only != nil {
		states = slices.DeleteFunc(states, func(st models.HeaterState) bool { return !s.only[st.Heater] })
	}
	if s.last != nil && slices.Equal(states, s.last) && s.unsent < resendEvery {
		s.unsent++
		return nil
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(wsEnvelope{Type: wsTypeHeaters, Data: states}); err != nil {
		return err
	}
	if states == nil {
		states = []models.HeaterState{}
	}
	s.last, s.unsent = states, 0
	return nil
}

func (s *heaterStream) debug(msg string, err error) {
	if s.h.log != nil {
		s.h.log.Debugw(msg, "err", err)
	}
}

// parseInterval reads ?interval=500ms; missing or out-of-range values give
// the default.
func parseInterval(c *gin.Context) time.Duration {
	if d, err := time.ParseDuration(c.Query("interval")); err == nil && d > 0 && d <= maxInterval {
		return d
	}
	return defaultInterval
}

// parseHeaterSet parses "0,2,5". An empty string means no filter.
func parseHeaterSet(raw string) (map[int]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	set := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid heater index %q", part)
		}
		set[n] = true
	}
	return set, nil
}
