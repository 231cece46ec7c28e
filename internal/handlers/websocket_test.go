package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"controlling_resistances/internal/models"
	"controlling_resistances/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		query string
		want  time.Duration
	}{
		{"", time.Second},
		{"interval=200ms", 200 * time.Millisecond},
		{"interval=10s", 10 * time.Second},
		{"interval=20s", time.Second},
		{"interval=-1s", time.Second},
		{"interval=bogus", time.Second},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/ws?"+tc.query, nil)
		if got := parseInterval(c); got != tc.want {
			t.Fatalf("%q: got %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestParseHeaterSet(t *testing.T) {
	set, err := parseHeaterSet(" 0, 2,2 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 2 || !set[0] || !set[2] {
		t.Fatalf("unexpected set: %v", set)
	}
	if set, err := parseHeaterSet(""); err != nil || set != nil {
		t.Fatalf("empty: got %v, %v", set, err)
	}
	for _, bad := range []string{"a", "1,,2", "-1"} {
		if _, err := parseHeaterSet(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

type wsFrame struct {
	Type string               `json:"type"`
	Data []models.HeaterState `json:"data"`
}

func dialStream(t *testing.T, mon *mockMonitoring, query string) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/ws", NewHandler(&service.Service{Monitoring: mon}, nil).wsConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, wait time.Duration) (wsFrame, error) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	var f wsFrame
	err := conn.ReadJSON(&f)
	return f, err
}

func TestWebSocket_SendsOnConnectAndOnChange(t *testing.T) {
	mon := &mockMonitoring{states: []models.HeaterState{
		{Heater: 0, TempC: 180.25, Commanded: true, On: true, Tick: 12, Running: true},
		{Heater: 1, TempC: 299.6, Commanded: true, Overridden: true, Tick: 12, Running: true},
	}}
	conn := dialStream(t, mon, "interval=20ms")

	first, err := readFrame(t, conn, time.Second)
	if err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.Type != wsTypeHeaters || len(first.Data) != 2 || first.Data[0].TempC != 180.25 || !first.Data[1].Overridden {
		t.Fatalf("unexpected initial frame: %+v", first)
	}

	// several polls with an unchanged snapshot produce nothing
	if f, err := readFrame(t, conn, 150*time.Millisecond); err == nil {
		t.Fatalf("unexpected frame for unchanged snapshot: %+v", f)
	}

	// a read deadline poisons the gorilla connection, so use a fresh one
	conn = dialStream(t, mon, "interval=20ms")
	if _, err := readFrame(t, conn, time.Second); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	mon.setStates([]models.HeaterState{
		{Heater: 0, TempC: 181.0, Commanded: true, On: true, Tick: 13, Running: true},
		{Heater: 1, TempC: 299.1, Commanded: true, Overridden: true, Tick: 13, Running: true},
	})
	next, err := readFrame(t, conn, time.Second)
	if err != nil {
		t.Fatalf("read change: %v", err)
	}
	if next.Data[0].Tick != 13 || next.Data[0].TempC != 181.0 {
		t.Fatalf("unexpected change frame: %+v", next)
	}
}

func TestWebSocket_HeaterSubset(t *testing.T) {
	mon := &mockMonitoring{states: []models.HeaterState{
		{Heater: 0, TempC: 20}, {Heater: 1, TempC: 21}, {Heater: 2, TempC: 22},
	}}
	conn := dialStream(t, mon, "heaters=2,0")

	f, err := readFrame(t, conn, time.Second)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(f.Data) != 2 || f.Data[0].Heater != 0 || f.Data[1].Heater != 2 {
		t.Fatalf("unexpected subset: %+v", f.Data)
	}
}

func TestWebSocket_BadHeaterSetRejectedBeforeUpgrade(t *testing.T) {
	r := gin.New()
	r.GET("/ws", NewHandler(&service.Service{Monitoring: &mockMonitoring{}}, nil).wsConnect)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?heaters=one", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if !strings.Contains(body["error"], "invalid heater index") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestWebSocket_InitialHeatersError_Closes(t *testing.T) {
	conn := dialStream(t, &mockMonitoring{err: errors.New("boom")}, "")

	if f, err := readFrame(t, conn, 500*time.Millisecond); err == nil {
		t.Fatalf("expected read error (closed), got frame: %+v", f)
	}
}
