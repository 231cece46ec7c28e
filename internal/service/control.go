package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"controlling_resistances/internal/actuator"
	"controlling_resistances/internal/logger"
	"controlling_resistances/internal/metrics"
	"controlling_resistances/internal/models"
	"controlling_resistances/internal/repository"
	"controlling_resistances/internal/sheet"
	"controlling_resistances/internal/thermal"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRunning = errors.New("a schedule is already running")
	ErrNotRunning     = errors.New("no schedule is running")
)

// PlanLoader returns the control plan to execute.
type PlanLoader func(ctx context.Context) (sheet.ControlPlan, error)

// ActuatorFactory builds the device backend for the heaters of a plan.
type ActuatorFactory func(plan sheet.ControlPlan) (actuator.Actuator, error)

// StateSink receives the heater snapshot of every tick. It must not block.
type StateSink interface {
	Send(states []models.HeaterState) bool
}

type ControlDeps struct {
	LoadPlan  PlanLoader
	Actuators ActuatorFactory
	Sink      StateSink // optional
}

type ControlOptions struct {
	Tick         time.Duration
	LogEvery     int // ticks between trajectory log lines; 0 disables
	RefreshEvery int // ticks between unconditional command re-sends; 0 disables
	MaxTempC     float64
	MarginC      float64
	// Initial overrides the ambient seed of the first len(Initial) heaters.
	Initial  []float64
	Dispatch actuator.DispatcherOptions
}

// ControlService executes one schedule at a time. The loop goroutine owns all
// trajectory state; actuator workers only report results back.
type ControlService struct {
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	deps      ControlDeps
	opts      ControlOptions
	log       *logger.Logger

	lifecycle sync.Mutex // serializes Start and Stop

	mu      sync.Mutex
	current *controlRun
	status  ControlStatus
}

type controlRun struct {
	plan     sheet.ControlPlan
	params   []thermal.Params
	temps    []float64
	sent     []bool
	hasSent  []bool
	states   []models.HeaterState
	governor thermal.Governor
	disp     *actuator.Dispatcher
	events   *eventQueue
	tick     int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewControlService(stateRepo repository.StateRepo, eventRepo repository.EventRepo, deps ControlDeps, opts ControlOptions, log *logger.Logger) *ControlService {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("control")
	return &ControlService{
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		deps:      deps,
		opts:      opts,
		log:       log,
	}
}

// Start loads the plan, connects the actuators and launches the loop. It
// fails with a sheet.MissingConfigurationError when a listed heater lacks
// parameters.
func (s *ControlService) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.running() != nil {
		return ErrAlreadyRunning
	}
	if s.deps.LoadPlan == nil || s.deps.Actuators == nil {
		return errors.New("control is not configured")
	}

	plan, err := s.deps.LoadPlan(ctx)
	if err != nil {
		return fmt.Errorf("load control plan: %w", err)
	}
	if len(plan.Schedule) == 0 {
		return &sheet.MissingConfigurationError{Label: sheet.LabelSchedule, Heater: -1}
	}
	act, err := s.deps.Actuators(plan)
	if err != nil {
		return fmt.Errorf("build actuators: %w", err)
	}

	run := s.newRun(plan, act)
	runCtx, cancel := context.WithCancel(context.Background())
	run.cancel = cancel

	now := time.Now().UTC()
	s.mu.Lock()
	s.current = run
	s.status = ControlStatus{
		Running:   true,
		Total:     len(plan.Schedule),
		Heaters:   len(plan.Heaters),
		StartedAt: now,
	}
	s.mu.Unlock()

	s.appendEvent(ctx, models.EventStart, "Schedule started", map[string]any{
		"heaters": len(plan.Heaters),
		"seconds": len(plan.Schedule),
	})
	s.log.Infow("schedule_started", "heaters", len(plan.Heaters), "seconds", len(plan.Schedule), "temps", run.temps)

	go s.run(runCtx, run)
	return nil
}

// Stop cancels the running schedule and waits until every heater has been
// switched off and the pending commands have drained.
func (s *ControlService) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	run := s.running()
	if run == nil {
		return ErrNotRunning
	}
	run.cancel()
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ControlService) Status() ControlStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done is closed when the current schedule ends. Without a running schedule
// the returned channel is already closed.
func (s *ControlService) Done() <-chan struct{} {
	if run := s.running(); run != nil {
		return run.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

func (s *ControlService) running() *controlRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *ControlService) newRun(plan sheet.ControlPlan, act actuator.Actuator) *controlRun {
	n := len(plan.Heaters)
	run := &controlRun{
		plan:    plan,
		params:  plan.Params(),
		temps:   initialTemperatures(plan, s.opts.Initial),
		sent:    make([]bool, n),
		hasSent: make([]bool, n),
		states:  make([]models.HeaterState, n),
		done:    make(chan struct{}),
		events:  newEventQueue(s.eventRepo, s.log),
	}
	run.governor = thermal.Governor{
		MaxTemp: s.opts.MaxTempC,
		Margin:  s.opts.MarginC,
		OnOverride: func(heater int, candidate, limit float64) {
			s.onOverride(run, heater, candidate, limit)
		},
	}

	dopts := s.opts.Dispatch
	dopts.OnResult = func(res actuator.Result) { s.onCommandResult(run, res) }
	run.disp = actuator.NewDispatcher(act, dopts, s.log)

	for h, heater := range plan.Heaters {
		run.states[h] = models.HeaterState{
			Heater:  heater.Index,
			Address: heater.Address,
			TempC:   run.temps[h],
			Running: true,
		}
	}
	return run
}

// initialTemperatures seeds every heater at its ambient temperature unless
// overridden positionally.
func initialTemperatures(plan sheet.ControlPlan, override []float64) []float64 {
	out := make([]float64, len(plan.Heaters))
	for h, heater := range plan.Heaters {
		out[h] = heater.Params.TAmbient
		if h < len(override) {
			out[h] = override[h]
		}
	}
	return out
}

func (s *ControlService) run(ctx context.Context, r *controlRun) {
	defer close(r.done)

	p := newPacer(s.opts.Tick)
	completed := true
	for r.tick = 0; r.tick < len(r.plan.Schedule); r.tick++ {
		lag, err := p.wait(ctx)
		if err != nil {
			completed = false
			break
		}
		metrics.ObserveTick(lag.Seconds())
		s.step(context.WithoutCancel(ctx), r)
	}
	s.finish(r, completed)
}

// step advances every heater by one second of the schedule.
func (s *ControlService) step(ctx context.Context, r *controlRun) {
	row := r.plan.Schedule[r.tick]
	refresh := s.opts.RefreshEvery > 0 && r.tick > 0 && r.tick%s.opts.RefreshEvery == 0
	now := time.Now().UTC()

	for h, heater := range r.plan.Heaters {
		commanded := h < len(row) && row[h]
		d := r.governor.Step(heater.Index, r.temps[h], commanded, r.params[h])
		r.temps[h] = d.Temp

		if !r.hasSent[h] || r.sent[h] != d.On || refresh {
			// a rejected command stays unsent and is retried next tick
			if err := r.disp.Submit(heater.Index, d.On); err != nil {
				s.onCommandResult(r, actuator.Result{Heater: heater.Index, On: d.On, Err: err})
			} else {
				r.sent[h], r.hasSent[h] = d.On, true
			}
		}

		st := &r.states[h]
		st.TempC = d.Temp
		st.Commanded = commanded
		st.On = d.On
		st.Overridden = d.Overridden
		st.Tick = r.tick + 1
		st.UpdatedAt = now
		metrics.SetHeater(heater.Index, d.Temp, d.On)
	}

	s.publish(ctx, r.states)

	if s.opts.LogEvery > 0 && (r.tick+1)%s.opts.LogEvery == 0 {
		s.log.Infow("heater_trajectory", "tick", r.tick+1, "temps", append([]float64(nil), r.temps...))
	}

	s.mu.Lock()
	s.status.Tick = r.tick + 1
	s.mu.Unlock()
}

// finish switches every heater off, waits for the actuator queue and records
// the outcome. The off commands wait for room behind any queued commands, so
// off is the last command each heater receives.
func (s *ControlService) finish(r *controlRun, completed bool) {
	ctx := context.Background()
	now := time.Now().UTC()
	for h, heater := range r.plan.Heaters {
		if err := r.disp.SubmitWait(ctx, heater.Index, false); err != nil {
			s.log.Errorw("heater_switch_off_failed", "heater", heater.Index, "err", err)
			s.onCommandResult(r, actuator.Result{Heater: heater.Index, Err: err})
		}
		st := &r.states[h]
		st.Commanded = false
		st.On = false
		st.Overridden = false
		st.Running = false
		st.UpdatedAt = now
	}
	r.disp.Drain()
	r.events.close()
	s.publish(ctx, r.states)

	if completed {
		s.appendEvent(ctx, models.EventScheduleDone, "Schedule finished", map[string]any{"seconds": r.tick})
	} else {
		s.appendEvent(ctx, models.EventStop, "Schedule stopped", map[string]any{"seconds": r.tick})
	}
	s.log.Infow("schedule_finished", "completed", completed, "tick", r.tick, "temps", r.temps)

	s.mu.Lock()
	s.current = nil
	s.status.Running = false
	s.status.Completed = completed
	s.status.FinishedAt = now
	s.mu.Unlock()
}

func (s *ControlService) publish(ctx context.Context, states []models.HeaterState) {
	if err := s.stateRepo.SaveAll(ctx, states); err != nil {
		s.log.Errorw("heater_state_save_failed", "err", err)
	}
	if s.deps.Sink != nil {
		s.deps.Sink.Send(append([]models.HeaterState(nil), states...))
	}
}

func (s *ControlService) onOverride(r *controlRun, heater int, candidate, limit float64) {
	tick := r.tick + 1
	metrics.SafetyOverride(heater)
	s.log.Warnw("safety_override", "heater", heater, "tick", tick, "candidate_c", candidate, "limit_c", limit)
	s.appendHeaterEvent(r, heater, models.EventSafetyOverride,
		fmt.Sprintf("Heater %d forced off at %.2f °C", heater, candidate),
		map[string]any{"heater": heater, "tick": tick, "candidate_c": candidate, "limit_c": limit})
}

// onCommandResult runs on dispatcher workers for finished commands and on the
// loop for refused ones.
func (s *ControlService) onCommandResult(r *controlRun, res actuator.Result) {
	metrics.ActuatorCommand(res.Heater, res.Err)
	if res.Err == nil {
		return
	}
	command := "off"
	if res.On {
		command = "on"
	}
	s.appendHeaterEvent(r, res.Heater, models.EventActuatorFailure,
		fmt.Sprintf("Heater %d command %s failed", res.Heater, command),
		map[string]any{"heater": res.Heater, "command": command, "error": res.Err.Error()})
}

func (s *ControlService) appendEvent(ctx context.Context, typ, description string, meta map[string]any) {
	s.storeEvent(ctx, models.HeaterEvent{Type: typ, Description: description, Metadata: meta})
}

// appendHeaterEvent queues an event tied to one heater on the run's event
// queue.
func (s *ControlService) appendHeaterEvent(r *controlRun, heater int, typ, description string, meta map[string]any) {
	r.events.push(models.HeaterEvent{
		Type:        typ,
		Heater:      &heater,
		Description: description,
		Metadata:    meta,
	})
}

func (s *ControlService) storeEvent(ctx context.Context, e models.HeaterEvent) {
	e.EventID = uuid.NewString()
	e.OccurredAt = time.Now().UTC()
	if err := s.eventRepo.Append(ctx, e); err != nil {
		s.log.Errorw("event_append_failed", "type", e.Type, "err", err)
	}
}
