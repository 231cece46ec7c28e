package broker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"controlling_resistances/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	reconnectInterval = 2 * time.Second
	defaultWait       = 5 * time.Second
	defaultQoS        = 1
)

var errTimeout = errors.New("mqtt: operation timed out")

// Config selects the broker and identifies this process on it.
type Config struct {
	URL      string
	ClientID string
	Username string
	Password string
	QoS      byte
	Wait     time.Duration
}

// Client is a paho client that serializes publishes and waits for their
// acknowledgement.
type Client struct {
	mu   sync.Mutex
	mqtt mqtt.Client
	qos  byte
	wait time.Duration
}

// Connect dials the broker once; paho reconnects on its own afterwards.
func Connect(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("mqtt: broker url is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "resctl-" + uuid.NewString()[:8]
	}
	if cfg.Wait <= 0 {
		cfg.Wait = defaultWait
	}
	if cfg.QoS > 1 {
		cfg.QoS = defaultQoS
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(reconnectInterval)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(c mqtt.Client) {
		if log != nil {
			or := c.OptionsReader()
			log.Infow("mqtt_connected", "servers", or.Servers(), "client_id", or.ClientID())
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		if log != nil {
			log.Warnw("mqtt_connection_lost", "err", err)
		}
	}

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(cfg.Wait) {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, errTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, err)
	}
	return &Client{mqtt: c, qos: cfg.QoS, wait: cfg.Wait}, nil
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	c.mu.Lock()
	tok := c.mqtt.Publish(topic, c.qos, retained, payload)
	c.mu.Unlock()

	if !tok.WaitTimeout(c.wait) {
		return fmt.Errorf("publish %s: %w", topic, errTimeout)
	}
	return tok.Error()
}

// Close disconnects, giving in-flight messages a short grace period.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mqtt.Disconnect(250)
}
