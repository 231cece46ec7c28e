package actuator

import (
	"context"
	"fmt"
	"sync"
)

// Actuator switches physical heaters. Heaters are addressed by their index in
// the control plan.
type Actuator interface {
	SetOn(ctx context.Context, heater int) error
	SetOff(ctx context.Context, heater int) error
	State(ctx context.Context, heater int) (bool, error)
}

// CommandError is a failed on/off order.
type CommandError struct {
	Heater  int
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("heater %d %s: %v", e.Heater, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

func commandName(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// Apply sends the command matching on.
func Apply(ctx context.Context, a Actuator, heater int, on bool) error {
	var err error
	if on {
		err = a.SetOn(ctx, heater)
	} else {
		err = a.SetOff(ctx, heater)
	}
	if err != nil {
		return &CommandError{Heater: heater, Command: commandName(on), Err: err}
	}
	return nil
}

// Noop remembers commands without touching hardware. It backs dry runs.
type Noop struct {
	mu    sync.Mutex
	state map[int]bool
}

func NewNoop() *Noop { return &Noop{state: map[int]bool{}} }

func (n *Noop) SetOn(_ context.Context, heater int) error  { return n.set(heater, true) }
func (n *Noop) SetOff(_ context.Context, heater int) error { return n.set(heater, false) }

func (n *Noop) State(_ context.Context, heater int) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state[heater], nil
}

func (n *Noop) set(heater int, on bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state[heater] = on
	return nil
}
