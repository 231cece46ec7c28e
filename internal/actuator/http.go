package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Relay endpoints default to the Shelly Gen1 relay API.
const (
	DefaultOnPath    = "/relay/0?turn=on"
	DefaultOffPath   = "/relay/0?turn=off"
	DefaultStatePath = "/relay/0"
	defaultTimeout   = 3 * time.Second
)

// HTTPConfig describes the relay endpoints, relative to each device address.
type HTTPConfig struct {
	OnPath    string
	OffPath   string
	StatePath string
	Timeout   time.Duration
}

// HTTPRelay toggles network relays, one device per heater.
type HTTPRelay struct {
	client *http.Client
	addrs  map[int]string
	cfg    HTTPConfig
}

// NewHTTPRelay maps heater indices to device addresses ("10.0.0.5" or a full URL).
func NewHTTPRelay(addrs map[int]string, cfg HTTPConfig) *HTTPRelay {
	if cfg.OnPath == "" {
		cfg.OnPath = DefaultOnPath
	}
	if cfg.OffPath == "" {
		cfg.OffPath = DefaultOffPath
	}
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &HTTPRelay{
		client: &http.Client{Timeout: cfg.Timeout},
		addrs:  addrs,
		cfg:    cfg,
	}
}

func (r *HTTPRelay) SetOn(ctx context.Context, heater int) error {
	_, err := r.get(ctx, heater, r.cfg.OnPath)
	return err
}

func (r *HTTPRelay) SetOff(ctx context.Context, heater int) error {
	_, err := r.get(ctx, heater, r.cfg.OffPath)
	return err
}

type relayStatus struct {
	IsOn bool `json:"ison"`
}

func (r *HTTPRelay) State(ctx context.Context, heater int) (bool, error) {
	body, err := r.get(ctx, heater, r.cfg.StatePath)
	if err != nil {
		return false, err
	}
	var st relayStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return false, fmt.Errorf("decode relay status: %w", err)
	}
	return st.IsOn, nil
}

func (r *HTTPRelay) get(ctx context.Context, heater int, path string) ([]byte, error) {
	base, ok := r.addrs[heater]
	if !ok {
		return nil, fmt.Errorf("no address for heater %d", heater)
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("relay %s answered %d", base, resp.StatusCode)
	}
	return body, nil
}
