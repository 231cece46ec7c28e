package actuator

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000

	defaultModbusPort = 502
)

// coilClient is the subset of modbus.Client used to drive a relay coil.
type coilClient interface {
	WriteSingleCoil(address, value uint16) ([]byte, error)
	ReadCoils(address, quantity uint16) ([]byte, error)
}

// ModbusConfig addresses one coil on every heater's relay module.
type ModbusConfig struct {
	Port    int
	Coil    uint16
	SlaveID byte
	Timeout time.Duration
}

// ModbusCoil drives one Modbus TCP relay module per heater.
type ModbusCoil struct {
	addrs map[int]string
	cfg   ModbusConfig
	dial  func(addr string) coilClient

	mu      sync.Mutex
	clients map[int]coilClient
}

func NewModbusCoil(addrs map[int]string, cfg ModbusConfig) *ModbusCoil {
	if cfg.Port == 0 {
		cfg.Port = defaultModbusPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.SlaveID == 0 {
		cfg.SlaveID = 1
	}
	m := &ModbusCoil{addrs: addrs, cfg: cfg, clients: map[int]coilClient{}}
	m.dial = func(addr string) coilClient {
		h := modbus.NewTCPClientHandler(addr)
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.SlaveID
		return modbus.NewClient(h)
	}
	return m
}

func (m *ModbusCoil) SetOn(_ context.Context, heater int) error  { return m.write(heater, coilOn) }
func (m *ModbusCoil) SetOff(_ context.Context, heater int) error { return m.write(heater, coilOff) }

func (m *ModbusCoil) State(_ context.Context, heater int) (bool, error) {
	c, err := m.client(heater)
	if err != nil {
		return false, err
	}
	res, err := c.ReadCoils(m.cfg.Coil, 1)
	if err != nil {
		return false, err
	}
	if len(res) == 0 {
		return false, fmt.Errorf("empty coil response from heater %d", heater)
	}
	return res[0]&0x01 == 1, nil
}

func (m *ModbusCoil) write(heater int, value uint16) error {
	c, err := m.client(heater)
	if err != nil {
		return err
	}
	_, err = c.WriteSingleCoil(m.cfg.Coil, value)
	return err
}

// client returns the cached connection of heater, dialing it on first use.
func (m *ModbusCoil) client(heater int) (coilClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[heater]; ok {
		return c, nil
	}
	host, ok := m.addrs[heater]
	if !ok {
		return nil, fmt.Errorf("no address for heater %d", heater)
	}
	c := m.dial(net.JoinHostPort(host, strconv.Itoa(m.cfg.Port)))
	m.clients[heater] = c
	return c, nil
}
