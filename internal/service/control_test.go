package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"controlling_resistances/internal/actuator"
	"controlling_resistances/internal/models"
	"controlling_resistances/internal/sheet"
	"controlling_resistances/internal/thermal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingActuator keeps every command per heater. delay makes each
// command slow.
type recordingActuator struct {
	mu    sync.Mutex
	cmds  map[int][]bool
	fail  bool
	delay time.Duration
}

func newRecordingActuator() *recordingActuator {
	return &recordingActuator{cmds: map[int][]bool{}}
}

func (r *recordingActuator) SetOn(_ context.Context, heater int) error  { return r.record(heater, true) }
func (r *recordingActuator) SetOff(_ context.Context, heater int) error { return r.record(heater, false) }
func (r *recordingActuator) State(_ context.Context, heater int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.cmds[heater]
	return len(c) > 0 && c[len(c)-1], nil
}

func (r *recordingActuator) record(heater int, on bool) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds[heater] = append(r.cmds[heater], on)
	if r.fail {
		return errors.New("relay unreachable")
	}
	return nil
}

func (r *recordingActuator) commands(heater int) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.cmds[heater]...)
}

type countingSink struct{ n atomic.Int32 }

func (c *countingSink) Send([]models.HeaterState) bool {
	c.n.Add(1)
	return true
}

func testPlan(schedule thermal.Schedule, params ...thermal.Params) sheet.ControlPlan {
	plan := sheet.ControlPlan{Schedule: schedule}
	for i, p := range params {
		plan.Heaters = append(plan.Heaters, sheet.Heater{Index: i * 2, Address: "10.0.0.1", Params: p})
	}
	return plan
}

type controlFixture struct {
	svc    *ControlService
	states *memStateRepo
	events *memEventRepo
	act    *recordingActuator
	sink   *countingSink
}

func newControlFixture(plan sheet.ControlPlan, opts ControlOptions) *controlFixture {
	f := &controlFixture{
		states: newMemStateRepo(),
		events: &memEventRepo{},
		act:    newRecordingActuator(),
		sink:   &countingSink{},
	}
	if opts.Tick == 0 {
		opts.Tick = time.Millisecond
	}
	if opts.MaxTempC == 0 {
		opts.MaxTempC = 1000
	}
	if opts.Dispatch.Workers == 0 {
		opts.Dispatch = actuator.DispatcherOptions{Workers: 1, Queue: 16}
	}
	deps := ControlDeps{
		LoadPlan:  func(context.Context) (sheet.ControlPlan, error) { return plan, nil },
		Actuators: func(sheet.ControlPlan) (actuator.Actuator, error) { return f.act, nil },
		Sink:      f.sink,
	}
	f.svc = NewControlService(f.states, f.events, deps, opts, nil)
	return f
}

func waitDone(t *testing.T, svc *ControlService) {
	t.Helper()
	select {
	case <-svc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not finish")
	}
}

func TestControlService_RunsScheduleToCompletion(t *testing.T) {
	p0 := thermal.Params{AlphaOn: 0.2, AlphaOff: 0.1, TMax: 200, TAmbient: 21.5}
	p1 := thermal.Params{AlphaOn: 0.05, AlphaOff: 0.05, TMax: 150, TAmbient: 21.5}
	schedule := thermal.Schedule{
		{true, false},
		{true, true},
		{false, false},
		{true, false},
	}
	f := newControlFixture(testPlan(schedule, p0, p1), ControlOptions{Initial: []float64{30}})

	require.NoError(t, f.svc.Start(context.Background()))
	done := f.svc.Done()
	waitDone(t, f.svc)
	<-done

	st := f.svc.Status()
	assert.False(t, st.Running)
	assert.True(t, st.Completed)
	assert.Equal(t, 4, st.Tick)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.Heaters)

	want0 := thermal.Simulate(30, schedule.Column(0), p0).Last()
	want1 := thermal.Simulate(21.5, schedule.Column(1), p1).Last()
	h0, err := f.states.Load(context.Background(), 0)
	require.NoError(t, err)
	h2, err := f.states.Load(context.Background(), 2)
	require.NoError(t, err)
	assert.InDelta(t, want0, h0.TempC, 1e-12)
	assert.InDelta(t, want1, h2.TempC, 1e-12)
	assert.False(t, h0.Running)
	assert.False(t, h0.On)
	assert.Equal(t, 4, h0.Tick)

	assert.Equal(t, []bool{true, false, true, false}, f.act.commands(0))
	assert.Equal(t, []bool{false, true, false, false}, f.act.commands(2))

	assert.Len(t, f.events.ofType(models.EventStart), 1)
	assert.Len(t, f.events.ofType(models.EventScheduleDone), 1)
	assert.Empty(t, f.events.ofType(models.EventStop))
	assert.Equal(t, int32(5), f.sink.n.Load())
}

func TestControlService_SafetyOverrideForcesOff(t *testing.T) {
	p := thermal.Params{AlphaOn: 0.5, AlphaOff: 0.5, TMax: 100, TAmbient: 20}
	schedule := thermal.Schedule{{true}, {true}, {true}, {true}}
	f := newControlFixture(testPlan(schedule, p), ControlOptions{MaxTempC: 70})

	require.NoError(t, f.svc.Start(context.Background()))
	waitDone(t, f.svc)

	// 20 -> 60 on, 80 refused -> 40, 70 refused -> 30, 65 on
	h, err := f.states.Load(context.Background(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 65.0, h.TempC, 1e-9)

	overrides := f.events.ofType(models.EventSafetyOverride)
	require.Len(t, overrides, 2)
	require.NotNil(t, overrides[0].Heater)
	assert.Equal(t, 0, *overrides[0].Heater)
	meta, ok := overrides[0].Metadata.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, meta["heater"])
	assert.Equal(t, 2, meta["tick"])
	assert.InDelta(t, 80.0, meta["candidate_c"].(float64), 1e-9)
	assert.InDelta(t, 70.0, meta["limit_c"].(float64), 1e-9)

	assert.Equal(t, []bool{true, false, true, false}, f.act.commands(0))
}

func TestControlService_RefreshResendsUnchangedCommands(t *testing.T) {
	p := thermal.Params{AlphaOn: 0.01, AlphaOff: 0.01, TMax: 100, TAmbient: 20}
	schedule := thermal.Schedule{{true}, {true}, {true}, {true}, {true}}
	f := newControlFixture(testPlan(schedule, p), ControlOptions{RefreshEvery: 2})

	require.NoError(t, f.svc.Start(context.Background()))
	waitDone(t, f.svc)

	assert.Equal(t, []bool{true, true, true, false}, f.act.commands(0))
}

func TestControlService_StopSwitchesEverythingOff(t *testing.T) {
	p := thermal.Params{AlphaOn: 0.01, AlphaOff: 0.01, TMax: 100, TAmbient: 20}
	schedule := thermal.ExpandSchedule([][]bool{{true, true}}, 100000)
	f := newControlFixture(testPlan(schedule, p, p), ControlOptions{Tick: 5 * time.Millisecond})

	require.NoError(t, f.svc.Start(context.Background()))
	assert.ErrorIs(t, f.svc.Start(context.Background()), ErrAlreadyRunning)
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Stop(ctx))

	st := f.svc.Status()
	assert.False(t, st.Running)
	assert.False(t, st.Completed)
	assert.Less(t, st.Tick, st.Total)

	for _, heater := range []int{0, 2} {
		cmds := f.act.commands(heater)
		require.NotEmpty(t, cmds)
		assert.False(t, cmds[len(cmds)-1], "heater %d left on", heater)
		h, err := f.states.Load(context.Background(), heater)
		require.NoError(t, err)
		assert.False(t, h.Running)
	}
	assert.Len(t, f.events.ofType(models.EventStop), 1)
	assert.Empty(t, f.events.ofType(models.EventScheduleDone))

	assert.ErrorIs(t, f.svc.Stop(ctx), ErrNotRunning)
}

func TestControlService_ActuatorFailuresAreLoggedNotFatal(t *testing.T) {
	p := thermal.Params{AlphaOn: 0.1, AlphaOff: 0.1, TMax: 100, TAmbient: 20}
	schedule := thermal.Schedule{{true}, {false}}
	f := newControlFixture(testPlan(schedule, p), ControlOptions{})
	f.act.fail = true

	require.NoError(t, f.svc.Start(context.Background()))
	waitDone(t, f.svc)

	assert.True(t, f.svc.Status().Completed)
	failures := f.events.ofType(models.EventActuatorFailure)
	require.Len(t, failures, 3)
	require.NotNil(t, failures[0].Heater)
	meta := failures[0].Metadata.(map[string]any)
	assert.Equal(t, "on", meta["command"])
}

func TestControlService_FinalOffSurvivesFullQueue(t *testing.T) {
	p := thermal.Params{AlphaOn: 0.01, AlphaOff: 0.01, TMax: 100, TAmbient: 20}
	schedule := make(thermal.Schedule, 40)
	for i := range schedule {
		on := i%2 == 0
		schedule[i] = []bool{on, on}
	}
	f := newControlFixture(testPlan(schedule, p, p), ControlOptions{
		Dispatch: actuator.DispatcherOptions{Workers: 1, Queue: 1},
	})
	f.act.delay = 5 * time.Millisecond

	require.NoError(t, f.svc.Start(context.Background()))
	waitDone(t, f.svc)

	for _, heater := range []int{0, 2} {
		cmds := f.act.commands(heater)
		require.NotEmpty(t, cmds)
		assert.False(t, cmds[len(cmds)-1], "heater %d left on", heater)
	}

	// commands refused while the relay lagged are still recorded
	failures := f.events.ofType(models.EventActuatorFailure)
	require.NotEmpty(t, failures)
	meta := failures[0].Metadata.(map[string]any)
	assert.Contains(t, meta["error"], actuator.ErrQueueFull.Error())
}

// stalledEventRepo holds appends of one event type until release is closed.
type stalledEventRepo struct {
	*memEventRepo
	typ     string
	release chan struct{}
}

func (s *stalledEventRepo) Append(ctx context.Context, e models.HeaterEvent) error {
	if e.Type == s.typ {
		<-s.release
	}
	return s.memEventRepo.Append(ctx, e)
}

func TestControlService_SlowEventStoreDoesNotStallTicks(t *testing.T) {
	p := thermal.Params{AlphaOn: 0.5, AlphaOff: 0.5, TMax: 100, TAmbient: 20}
	schedule := thermal.ExpandSchedule([][]bool{{true}}, 20)
	plan := testPlan(schedule, p)
	events := &stalledEventRepo{memEventRepo: &memEventRepo{}, typ: models.EventSafetyOverride, release: make(chan struct{})}
	svc := NewControlService(newMemStateRepo(), events, ControlDeps{
		LoadPlan:  func(context.Context) (sheet.ControlPlan, error) { return plan, nil },
		Actuators: func(sheet.ControlPlan) (actuator.Actuator, error) { return actuator.NewNoop(), nil },
	}, ControlOptions{Tick: time.Millisecond, MaxTempC: 30}, nil)

	require.NoError(t, svc.Start(context.Background()))
	// every tick is overridden while the store refuses to return
	assert.Eventually(t, func() bool { return svc.Status().Tick == 20 }, 2*time.Second, 5*time.Millisecond)

	close(events.release)
	waitDone(t, svc)
	assert.Len(t, events.ofType(models.EventSafetyOverride), 20)
	assert.Len(t, events.ofType(models.EventScheduleDone), 1)
}

func TestControlService_StartRefusesIncompletePlan(t *testing.T) {
	missing := &sheet.MissingConfigurationError{Label: sheet.LabelAlpha, Heater: 1}
	svc := NewControlService(newMemStateRepo(), &memEventRepo{}, ControlDeps{
		LoadPlan:  func(context.Context) (sheet.ControlPlan, error) { return sheet.ControlPlan{}, missing },
		Actuators: func(sheet.ControlPlan) (actuator.Actuator, error) { return actuator.NewNoop(), nil },
	}, ControlOptions{MaxTempC: 100}, nil)

	err := svc.Start(context.Background())
	var mce *sheet.MissingConfigurationError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, 1, mce.Heater)
	assert.False(t, svc.Status().Running)

	select {
	case <-svc.Done():
	default:
		t.Fatal("Done should be closed without a running schedule")
	}
}

func TestControlService_StartRefusesEmptySchedule(t *testing.T) {
	p := thermal.Params{AlphaOn: 0.1, AlphaOff: 0.1, TMax: 100, TAmbient: 20}
	f := newControlFixture(testPlan(nil, p), ControlOptions{})

	err := f.svc.Start(context.Background())
	assert.ErrorIs(t, err, sheet.ErrMissingConfiguration)
}

func TestControlService_UnconfiguredStart(t *testing.T) {
	svc := NewControlService(newMemStateRepo(), &memEventRepo{}, ControlDeps{}, ControlOptions{}, nil)
	assert.Error(t, svc.Start(context.Background()))
}

func TestInitialTemperatures(t *testing.T) {
	p := thermal.Params{AlphaOn: 0.1, AlphaOff: 0.1, TMax: 100, TAmbient: 21.5}
	plan := testPlan(nil, p, p, p)

	assert.Equal(t, []float64{21.5, 21.5, 21.5}, initialTemperatures(plan, nil))
	assert.Equal(t, []float64{30, 40, 21.5}, initialTemperatures(plan, []float64{30, 40}))
	assert.Equal(t, []float64{1, 2, 3}, initialTemperatures(plan, []float64{1, 2, 3, 4}))
}
