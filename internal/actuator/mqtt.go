package actuator

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Publisher is the part of the broker client the MQTT actuator needs.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// MQTTSwitch commands heaters by publishing ON/OFF to <prefix>/<heater>/set.
// The last accepted command is reported as the state.
type MQTTSwitch struct {
	pub    Publisher
	prefix string

	mu    sync.Mutex
	state map[int]bool
}

func NewMQTTSwitch(pub Publisher, prefix string) *MQTTSwitch {
	if prefix == "" {
		prefix = "resistances"
	}
	return &MQTTSwitch{pub: pub, prefix: strings.TrimRight(prefix, "/"), state: map[int]bool{}}
}

func (m *MQTTSwitch) SetOn(_ context.Context, heater int) error  { return m.send(heater, true) }
func (m *MQTTSwitch) SetOff(_ context.Context, heater int) error { return m.send(heater, false) }

func (m *MQTTSwitch) State(_ context.Context, heater int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[heater], nil
}

// Topic returns the command topic of heater.
func (m *MQTTSwitch) Topic(heater int) string {
	return fmt.Sprintf("%s/%d/set", m.prefix, heater)
}

func (m *MQTTSwitch) send(heater int, on bool) error {
	payload := "OFF"
	if on {
		payload = "ON"
	}
	if err := m.pub.Publish(m.Topic(heater), []byte(payload), true); err != nil {
		return err
	}
	m.mu.Lock()
	m.state[heater] = on
	m.mu.Unlock()
	return nil
}
