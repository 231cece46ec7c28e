package actuator

import (
	"context"
	"errors"
	"sync"
	"time"

	"controlling_resistances/internal/logger"

	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers = 4
	defaultQueue   = 64
)

// ErrQueueFull is reported when a command is dropped because the queue of its
// heater's worker is full.
var ErrQueueFull = errors.New("actuator queue full")

// ErrDrained is reported for commands submitted after Drain.
var ErrDrained = errors.New("dispatcher drained")

// Result is the outcome of one dispatched command.
type Result struct {
	Heater   int
	On       bool
	Err      error
	Duration time.Duration
}

// DispatcherOptions size the worker pool.
type DispatcherOptions struct {
	Workers int
	Queue   int // per worker
	// Timeout bounds each command; zero leaves it to the actuator.
	Timeout time.Duration
	// OnResult observes every command a worker finished. It runs on the
	// worker goroutine. Commands refused by Submit are only returned.
	OnResult func(Result)
}

type job struct {
	heater int
	on     bool
}

// Dispatcher sends actuator commands from a bounded pool of workers so a slow
// device never holds up the caller. Each heater is pinned to one worker, so
// its commands are applied in submission order.
type Dispatcher struct {
	act  Actuator
	opts DispatcherOptions
	log  *logger.Logger

	shards []chan job
	group  errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts the workers.
func NewDispatcher(act Actuator, opts DispatcherOptions, log *logger.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Queue <= 0 {
		opts.Queue = defaultQueue
	}
	d := &Dispatcher{
		act:    act,
		opts:   opts,
		log:    log,
		shards: make([]chan job, opts.Workers),
	}
	for i := range d.shards {
		jobs := make(chan job, opts.Queue)
		d.shards[i] = jobs
		d.group.Go(func() error { return d.work(jobs) })
	}
	return d
}

// Submit queues a command without waiting for it. A command that cannot be
// queued is returned as a *CommandError and never reaches OnResult.
func (d *Dispatcher) Submit(heater int, on bool) error {
	return d.rejected(heater, on, d.enqueue(context.Background(), job{heater: heater, on: on}, false))
}

// SubmitWait queues a command, waiting for room behind the commands already
// queued for the heater. Use it for commands that must not be dropped, such
// as the final switch-off.
func (d *Dispatcher) SubmitWait(ctx context.Context, heater int, on bool) error {
	return d.rejected(heater, on, d.enqueue(ctx, job{heater: heater, on: on}, true))
}

func (d *Dispatcher) rejected(heater int, on bool, err error) error {
	if err == nil {
		return nil
	}
	if d.log != nil {
		d.log.Warnw("actuator_command_rejected", "heater", heater, "command", commandName(on), "err", err)
	}
	return &CommandError{Heater: heater, Command: commandName(on), Err: err}
}

// enqueue with wait blocks for room until ctx is done. Workers do not take
// d.mu, so holding it here cannot stall them.
func (d *Dispatcher) enqueue(ctx context.Context, j job, wait bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDrained
	}
	jobs := d.shards[d.shard(j.heater)]
	if !wait {
		select {
		case jobs <- j:
			return nil
		default:
			return ErrQueueFull
		}
	}
	select {
	case jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) shard(heater int) int {
	if heater < 0 {
		heater = -heater
	}
	return heater % len(d.shards)
}

// Drain stops accepting commands and waits until every queued and in-flight
// command has finished. Commands are not cancelled.
func (d *Dispatcher) Drain() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, jobs := range d.shards {
			close(jobs)
		}
	}
	d.mu.Unlock()
	_ = d.group.Wait()
}

func (d *Dispatcher) work(jobs <-chan job) error {
	for j := range jobs {
		ctx, cancel := d.commandContext()
		start := time.Now()
		err := Apply(ctx, d.act, j.heater, j.on)
		cancel()
		d.report(Result{Heater: j.heater, On: j.on, Err: err, Duration: time.Since(start)})
	}
	return nil
}

func (d *Dispatcher) commandContext() (context.Context, context.CancelFunc) {
	if d.opts.Timeout > 0 {
		return context.WithTimeout(context.Background(), d.opts.Timeout)
	}
	return context.WithCancel(context.Background())
}

func (d *Dispatcher) report(r Result) {
	if r.Err != nil && d.log != nil {
		d.log.Warnw("actuator_command_failed", "heater", r.Heater, "command", commandName(r.On), "err", r.Err)
	}
	if d.opts.OnResult != nil {
		d.opts.OnResult(r)
	}
}
