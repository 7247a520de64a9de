package chain

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/secretbox-core/internal/action"
	"github.com/nerrad567/secretbox-core/internal/pin"
	"github.com/nerrad567/secretbox-core/internal/timer"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type gpioWrite struct {
	id    int
	level pin.Level
}

type mockGPIO struct {
	mu     sync.Mutex
	writes []gpioWrite
	inputs map[int]pin.Level
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{inputs: make(map[int]pin.Level)}
}

func (m *mockGPIO) Write(id int, level pin.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, gpioWrite{id, level})
	return nil
}

func (m *mockGPIO) Read(id int) (pin.Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs[id], nil
}

func (m *mockGPIO) all() []gpioWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gpioWrite(nil), m.writes...)
}

type soundPlay struct {
	id  int
	dur time.Duration
}

type mockSound struct {
	mu    sync.Mutex
	plays []soundPlay
}

func (m *mockSound) Play(id int, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays = append(m.plays, soundPlay{id, d})
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) ChainEvent(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

type testEngine struct {
	*Engine
	drv   *timer.ManualDriver
	gpio  *mockGPIO
	sound *mockSound
	log   *eventLog
}

func newTestEngine(t *testing.T, poolSize int) *testEngine {
	t.Helper()

	mk := func(id, indicator int, dir pin.Direction) *pin.Pin {
		p, err := pin.New(id, indicator, dir, pin.ModeLogic)
		if err != nil {
			t.Fatalf("pin.New(%d): %v", id, err)
		}
		return p
	}
	bank, err := pin.NewBank(
		mk(1, 13, pin.Output),
		mk(13, pin.NoIndicator, pin.Output),
		mk(4, pin.NoIndicator, pin.Output),
		mk(7, pin.NoIndicator, pin.Input),
	)
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	te := &testEngine{
		drv:   timer.NewManualDriver(),
		gpio:  newMockGPIO(),
		sound: &mockSound{},
		log:   &eventLog{},
	}
	e, err := NewEngine(Config{
		PoolSize: poolSize,
		Driver:   te.drv,
		Pins:     bank,
		GPIO:     te.gpio,
		Sound:    te.sound,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.AddObserver(te.log)
	te.Engine = e
	return te
}

func (te *testEngine) register(t *testing.T, name string, actions ...action.Action) {
	t.Helper()
	if err := te.Register(New(name, actions...)); err != nil {
		t.Fatalf("Register(%s): %v", name, err)
	}
}

func (te *testEngine) fireAll(t *testing.T, max int) int {
	t.Helper()
	n := 0
	for ; n < max; n++ {
		if _, ok := te.drv.FireNext(); !ok {
			return n
		}
	}
	return n
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestEngine_ThreeStepScenario(t *testing.T) {
	te := newTestEngine(t, 1)
	te.register(t, "scenario",
		action.MustNew(action.SetPin, 1, 1).After(100*time.Millisecond),
		action.MustNew(action.PlaySound, 2, 500).After(500*time.Millisecond),
		action.MustNew(action.SetPin, 1, 0),
	)

	if err := te.Arm("scenario"); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if n := te.fireAll(t, 10); n != 3 {
		t.Fatalf("expiries = %d, want 3", n)
	}

	snap, err := te.Snapshot("scenario")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.State != "completed" || snap.Cursor != 3 || snap.TimerID != nil {
		t.Errorf("snapshot = %+v", snap)
	}
	if stats := te.Stats(); stats.TimersInUse != 0 {
		t.Errorf("TimersInUse = %d, want 0", stats.TimersInUse)
	}

	// Pin 1 mirrors onto indicator 13.
	want := []gpioWrite{{1, pin.High}, {13, pin.High}, {1, pin.Low}, {13, pin.Low}}
	got := te.gpio.all()
	if len(got) != len(want) {
		t.Fatalf("gpio writes = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(te.sound.plays) != 1 || te.sound.plays[0] != (soundPlay{2, 500 * time.Millisecond}) {
		t.Errorf("sound plays = %+v", te.sound.plays)
	}
	if te.drv.Now() != 600*time.Millisecond {
		t.Errorf("virtual time = %v, want 600ms", te.drv.Now())
	}

	types := te.log.types()
	if types[0] != EventArmed || types[len(types)-1] != EventCompleted {
		t.Errorf("events = %v", types)
	}
}

func TestEngine_StaleExpiryDropped(t *testing.T) {
	te := newTestEngine(t, 1)
	te.register(t, "slow", action.MustNew(action.SetPin, 4, 1).After(time.Second))

	if err := te.Arm("slow"); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	snap, _ := te.Snapshot("slow") //nolint:errcheck // registered above
	id := *snap.TimerID

	if err := te.Disarm("slow"); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	// A fire already in flight when the timer was stopped.
	te.HandleExpiry(id, 1)

	if len(te.gpio.all()) != 0 {
		t.Errorf("stale expiry ran a step: %+v", te.gpio.all())
	}
}

func TestEngine_ArmErrors(t *testing.T) {
	te := newTestEngine(t, 1)
	te.register(t, "a", action.MustNew(action.Wait, 10))
	te.register(t, "b", action.MustNew(action.Wait, 10))

	if err := te.Arm("missing"); !errors.Is(err, ErrChainNotFound) {
		t.Errorf("Arm(missing) error = %v", err)
	}
	if err := te.Arm("a"); err != nil {
		t.Fatalf("Arm(a): %v", err)
	}
	if err := te.Arm("a"); !errors.Is(err, ErrAlreadyArmed) {
		t.Errorf("Arm(a) twice error = %v", err)
	}
	if err := te.Arm("b"); !errors.Is(err, ErrTimerPoolExhausted) {
		t.Errorf("Arm(b) error = %v, want ErrTimerPoolExhausted", err)
	}
	if err := te.Register(New("a")); !errors.Is(err, ErrChainExists) {
		t.Errorf("Register duplicate error = %v", err)
	}
	if err := te.Register(New("")); !errors.Is(err, ErrInvalidChain) {
		t.Errorf("Register unnamed error = %v", err)
	}
	for _, name := range []string{"a/b", "a+", "#", "front door"} {
		if err := te.Register(New(name)); !errors.Is(err, ErrInvalidChain) {
			t.Errorf("Register(%q) error = %v, want ErrInvalidChain", name, err)
		}
	}
}

func TestEngine_InputPinFault(t *testing.T) {
	te := newTestEngine(t, 1)
	te.register(t, "bad",
		action.MustNew(action.SetPin, 7, 1),
		action.MustNew(action.SetPin, 99, 1),
		action.MustNew(action.SetPin, 4, 1),
	)

	_ = te.Arm("bad") //nolint:errcheck // pool has room
	te.fireAll(t, 10)

	snap, _ := te.Snapshot("bad") //nolint:errcheck // registered above
	if snap.State != "completed" || snap.Faults != 2 {
		t.Errorf("state=%s faults=%d, want completed/2", snap.State, snap.Faults)
	}
	for _, p := range te.Pins() {
		if p.ID == 7 && p.Level != "low" {
			t.Errorf("input pin driven to %s", p.Level)
		}
	}

	faults := 0
	for _, typ := range te.log.types() {
		if typ == EventFault {
			faults++
		}
	}
	if faults != 2 {
		t.Errorf("fault events = %d, want 2", faults)
	}
}

func TestEngine_IndicatorOnInputNotDriven(t *testing.T) {
	out, err := pin.New(4, 22, pin.Output, pin.ModeLogic)
	if err != nil {
		t.Fatalf("pin.New(4): %v", err)
	}
	in, err := pin.New(22, pin.NoIndicator, pin.Input, pin.ModeLogic)
	if err != nil {
		t.Fatalf("pin.New(22): %v", err)
	}
	bank, err := pin.NewBank(out, in)
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	drv := timer.NewManualDriver()
	gpio := newMockGPIO()
	e, err := NewEngine(Config{PoolSize: 1, Driver: drv, Pins: bank, GPIO: gpio})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Register(New("lamp",
		action.MustNew(action.SetPin, 4, 1),
		action.MustNew(action.TogglePin, 4),
	)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := e.Arm("lamp"); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	for {
		if _, ok := drv.FireNext(); !ok {
			break
		}
	}

	want := []gpioWrite{{4, pin.High}, {4, pin.Low}}
	got := gpio.all()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("gpio writes = %+v, want %+v", got, want)
	}
	snap, _ := e.Snapshot("lamp") //nolint:errcheck // registered above
	if snap.Faults != 0 {
		t.Errorf("faults = %d (%s), want 0", snap.Faults, snap.LastFault)
	}
	if in.Level() != pin.Low {
		t.Errorf("input pin level = %s, want low", in.Level())
	}
}

func TestEngine_OneShot(t *testing.T) {
	te := newTestEngine(t, 2)

	name, err := te.ArmOneShot(action.MustNew(action.TogglePin, 4))
	if err != nil {
		t.Fatalf("ArmOneShot: %v", err)
	}
	if !strings.HasPrefix(name, "oneshot-") {
		t.Errorf("name = %q", name)
	}
	snap, err := te.Snapshot(name)
	if err != nil || !snap.OneShot {
		t.Fatalf("Snapshot(%s) = %+v, %v", name, snap, err)
	}

	te.fireAll(t, 5)

	if _, err := te.Snapshot(name); !errors.Is(err, ErrChainNotFound) {
		t.Errorf("completed one-shot still registered: %v", err)
	}
	if w := te.gpio.all(); len(w) != 1 || w[0] != (gpioWrite{4, pin.High}) {
		t.Errorf("gpio writes = %+v", w)
	}
	if te.Stats().TimersInUse != 0 {
		t.Error("one-shot leaked its timer")
	}
}

func TestEngine_AppendToArmed(t *testing.T) {
	te := newTestEngine(t, 1)
	te.register(t, "live", action.MustNew(action.SetPin, 4, 1).After(time.Second))
	_ = te.Arm("live") //nolint:errcheck // pool has room

	if err := te.Append("live", action.MustNew(action.SetPin, 4, 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n := te.fireAll(t, 5); n != 2 {
		t.Errorf("expiries = %d, want 2", n)
	}
	if err := te.Append("live", action.MustNew(action.Halt)); !errors.Is(err, ErrNotIdle) {
		t.Errorf("Append after completion error = %v", err)
	}
}

func TestEngine_AppendIfArmed(t *testing.T) {
	te := newTestEngine(t, 1)
	te.register(t, "live", action.MustNew(action.SetPin, 4, 1).After(time.Second))
	extra := action.MustNew(action.SetPin, 4, 0)

	// Idle chains are left untouched.
	ok, err := te.AppendIfArmed("live", extra)
	if err != nil || ok {
		t.Fatalf("AppendIfArmed(idle) = %v, %v, want false, nil", ok, err)
	}
	if snap, _ := te.Snapshot("live"); snap.Length != 1 { //nolint:errcheck // registered above
		t.Errorf("idle chain length = %d, want 1", snap.Length)
	}

	_ = te.Arm("live") //nolint:errcheck // pool has room
	if ok, err := te.AppendIfArmed("live", extra); err != nil || !ok {
		t.Fatalf("AppendIfArmed(armed) = %v, %v, want true, nil", ok, err)
	}
	if n := te.fireAll(t, 5); n != 2 {
		t.Errorf("expiries = %d, want 2", n)
	}

	if ok, err := te.AppendIfArmed("live", extra); err != nil || ok {
		t.Errorf("AppendIfArmed(completed) = %v, %v, want false, nil", ok, err)
	}
	if _, err := te.AppendIfArmed("missing", extra); !errors.Is(err, ErrChainNotFound) {
		t.Errorf("AppendIfArmed(missing) error = %v", err)
	}
}

func TestEngine_ResetAndRearm(t *testing.T) {
	te := newTestEngine(t, 1)
	te.register(t, "again", action.MustNew(action.TogglePin, 4))

	for run := 0; run < 3; run++ {
		if err := te.Arm("again"); err != nil {
			t.Fatalf("run %d: Arm: %v", run, err)
		}
		te.fireAll(t, 5)
		if err := te.Reset("again"); err != nil {
			t.Fatalf("run %d: Reset: %v", run, err)
		}
	}

	w := te.gpio.all()
	if len(w) != 3 || w[0].level != pin.High || w[1].level != pin.Low || w[2].level != pin.High {
		t.Errorf("toggle writes = %+v", w)
	}
}

func TestEngine_DisarmAll(t *testing.T) {
	te := newTestEngine(t, 3)
	te.register(t, "x", action.MustNew(action.Wait, 100))
	te.register(t, "y", action.MustNew(action.Wait, 100))
	te.register(t, "z", action.MustNew(action.Wait, 100))
	_ = te.Arm("x") //nolint:errcheck // pool has room
	_ = te.Arm("y") //nolint:errcheck // pool has room

	te.DisarmAll()

	stats := te.Stats()
	if stats.Armed != 0 || stats.TimersInUse != 0 {
		t.Errorf("stats after DisarmAll = %+v", stats)
	}
	if len(te.drv.Pending()) != 0 {
		t.Errorf("pending timers = %v", te.drv.Pending())
	}
}

func TestEngine_AdvancePin(t *testing.T) {
	te := newTestEngine(t, 1)
	head, err := pin.NewCycle(
		pin.Step{State: 1, Dwell: 200 * time.Millisecond},
		pin.Step{State: 0, Dwell: 800 * time.Millisecond},
	)
	if err != nil {
		t.Fatalf("NewCycle: %v", err)
	}

	if _, _, err := te.AdvancePin(4); !errors.Is(err, ErrNoPattern) {
		t.Errorf("AdvancePin without pattern error = %v", err)
	}
	if _, _, err := te.AdvancePin(42); !errors.Is(err, pin.ErrInvalidPinReference) {
		t.Errorf("AdvancePin(42) error = %v", err)
	}

	p, _ := te.pins.Get(4) //nolint:errcheck // pin 4 exists
	p.Attach(head)

	snap, dwell, err := te.AdvancePin(4)
	if err != nil {
		t.Fatalf("AdvancePin: %v", err)
	}
	if dwell != 800*time.Millisecond || snap.Level != "low" {
		t.Errorf("advance 1: dwell=%v level=%s", dwell, snap.Level)
	}
	snap, dwell, _ = te.AdvancePin(4) //nolint:errcheck // cycle never ends
	if dwell != 200*time.Millisecond || snap.Level != "high" {
		t.Errorf("advance 2: dwell=%v level=%s", dwell, snap.Level)
	}
	if te.Stats().TimersInUse != 0 {
		t.Error("pattern step claimed a chain timer")
	}
}

func TestEngine_SyncInputs(t *testing.T) {
	te := newTestEngine(t, 1)
	te.gpio.inputs[7] = pin.High

	if err := te.SyncInputs(); err != nil {
		t.Fatalf("SyncInputs: %v", err)
	}
	for _, p := range te.Pins() {
		if p.ID == 7 && p.Value != 1 {
			t.Errorf("input pin value = %d, want 1", p.Value)
		}
	}
}

func TestEngine_SoftDriverRunsChain(t *testing.T) {
	drv := timer.NewSoftDriver()
	defer drv.Close()

	p, err := pin.New(4, pin.NoIndicator, pin.Output, pin.ModeLogic)
	if err != nil {
		t.Fatalf("pin.New: %v", err)
	}
	bank, err := pin.NewBank(p)
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	e, err := NewEngine(Config{PoolSize: 1, Driver: drv, Pins: bank})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	done := make(chan struct{})
	e.AddObserver(ObserverFunc(func(ev Event) {
		if ev.Type == EventCompleted {
			close(done)
		}
	}))

	_ = e.Register(New("soft", //nolint:errcheck // fresh engine
		action.MustNew(action.SetPin, 4, 1).After(2*time.Millisecond),
		action.MustNew(action.Wait, 5),
		action.MustNew(action.SetPin, 4, 0).After(time.Millisecond),
	))
	if err := e.Arm("soft"); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("chain did not complete on the soft driver")
	}
	if pins := e.Pins(); pins[0].Level != "low" {
		t.Errorf("final level = %s, want low", pins[0].Level)
	}
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"intro", true},
		{"door-2_open.v1", true},
		{"", false},
		{"a/b", false},
		{"a+", false},
		{"a#", false},
		{"front door", false},
		{"tab\t", false},
	}
	for _, tt := range tests {
		if got := ValidName(tt.name); got != tt.want {
			t.Errorf("ValidName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
