package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"

	"controlling_resistances/internal/logger"
	"controlling_resistances/internal/models"
)

const defaultBuffer = 16

// Publisher is the part of the broker client telemetry needs.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Stream publishes heater snapshots to <prefix>/<heater>/state from its own
// goroutine. Snapshots that arrive while the buffer is full are dropped.
type Stream struct {
	pub    Publisher
	prefix string
	log    *logger.Logger

	in   chan []models.HeaterState
	done chan struct{}
}

func NewStream(pub Publisher, prefix string, log *logger.Logger) *Stream {
	if prefix == "" {
		prefix = "resistances"
	}
	s := &Stream{
		pub:    pub,
		prefix: strings.TrimRight(prefix, "/"),
		log:    log,
		in:     make(chan []models.HeaterState, defaultBuffer),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Send queues a snapshot and reports whether it was accepted.
func (s *Stream) Send(states []models.HeaterState) bool {
	select {
	case s.in <- states:
		return true
	default:
		return false
	}
}

// Close flushes queued snapshots and stops the stream. Send must not be
// called afterwards.
func (s *Stream) Close() {
	close(s.in)
	<-s.done
}

// Topic returns the state topic of heater.
func (s *Stream) Topic(heater int) string {
	return fmt.Sprintf("%s/%d/state", s.prefix, heater)
}

func (s *Stream) loop() {
	defer close(s.done)
	for states := range s.in {
		for _, st := range states {
			payload, err := json.Marshal(st)
			if err != nil {
				continue
			}
			if err := s.pub.Publish(s.Topic(st.Heater), payload, false); err != nil && s.log != nil {
				s.log.Warnw("telemetry_publish_failed", "heater", st.Heater, "err", err)
			}
		}
	}
}
