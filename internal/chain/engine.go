package chain

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/nerrad567/secretbox-core/internal/action"
	"github.com/nerrad567/secretbox-core/internal/pin"
	"github.com/nerrad567/secretbox-core/internal/timer"
)

// Logger is the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PinIO is the hardware side of the pin model.
type PinIO interface {
	Write(id int, level pin.Level) error
	Read(id int) (pin.Level, error)
}

// SoundPlayer triggers sound clips. Play must not block.
type SoundPlayer interface {
	Play(id int, d time.Duration) error
}

// Config holds the engine's collaborators.
type Config struct {
	// PoolSize is the number of timer instances shared by all chains.
	PoolSize int
	// Driver runs the timers. Required.
	Driver timer.Driver
	// Pins is the board's pin table. Nil means an empty bank.
	Pins *pin.Bank
	// GPIO receives pin writes. Nil keeps writes in the pin model only.
	GPIO PinIO
	// Sound receives PlaySound steps. Nil makes PlaySound a fault.
	Sound  SoundPlayer
	Logger Logger
}

// Stats summarises engine occupancy.
type Stats struct {
	Chains      int `json:"chains"`
	Armed       int `json:"armed"`
	TimersInUse int `json:"timers_in_use"`
	PoolSize    int `json:"pool_size"`
}

// Engine owns every chain and the shared timer pool.
//
// Thread Safety: all methods are safe for concurrent use. A single mutex
// serialises timer expiry against arm, disarm, reset and append, so a
// handler never observes a chain changing under it.
type Engine struct {
	mu       sync.Mutex
	pool     *timer.Pool
	chains   map[string]*Chain
	byTimer  map[int]*Chain
	oneShots map[string]bool
	pins     *pin.Bank
	gpio     PinIO
	sound    SoundPlayer

	obsMu     sync.RWMutex
	observers []Observer

	logger Logger
}

// NewEngine creates an engine and its timer pool.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.Pins == nil {
		cfg.Pins, _ = pin.NewBank() //nolint:errcheck // empty bank cannot fail
	}

	e := &Engine{
		chains:   make(map[string]*Chain),
		byTimer:  make(map[int]*Chain),
		oneShots: make(map[string]bool),
		pins:     cfg.Pins,
		gpio:     cfg.GPIO,
		sound:    cfg.Sound,
		logger:   cfg.Logger,
	}

	pool, err := timer.NewPool(cfg.PoolSize, cfg.Driver, e.HandleExpiry)
	if err != nil {
		return nil, fmt.Errorf("creating timer pool: %w", err)
	}
	e.pool = pool
	return e, nil
}

// AddObserver registers an observer for chain events.
func (e *Engine) AddObserver(o Observer) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, o)
}

// Register adds an idle chain under its name.
func (e *Engine) Register(c *Chain) error {
	if c == nil || c.Name() == "" {
		return fmt.Errorf("%w: chain needs a name", ErrInvalidChain)
	}
	if !ValidName(c.Name()) {
		return fmt.Errorf("%w: %q is not a valid topic segment", ErrInvalidChain, c.Name())
	}
	if strings.HasPrefix(c.Name(), OneShotPrefix) {
		return fmt.Errorf("%w: %q uses the one-shot prefix", ErrInvalidChain, c.Name())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.chains[c.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrChainExists, c.Name())
	}
	e.chains[c.Name()] = c
	return nil
}

// Arm arms the named chain.
func (e *Engine) Arm(name string) error {
	e.mu.Lock()
	c, err := e.lookup(name)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	events, err := e.arm(c)
	e.mu.Unlock()

	e.emit(events)
	return err
}

// OneShotPrefix starts every generated one-shot chain name. Registered
// chains may not use it.
const OneShotPrefix = "oneshot-"

// ValidName reports whether name can be used as a single MQTT topic level.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r == '/', r == '+', r == '#':
			return false
		case unicode.IsSpace(r), unicode.IsControl(r):
			return false
		}
	}
	return true
}

// ArmOneShot arms a new single-action chain and returns its generated name.
// The chain is forgotten once it completes, disarms or resets.
func (e *Engine) ArmOneShot(a action.Action) (string, error) {
	name := OneShotPrefix + uuid.NewString()
	c := New(name, a)

	e.mu.Lock()
	e.chains[name] = c
	e.oneShots[name] = true
	events, err := e.arm(c)
	if err != nil || c.State() != Armed {
		e.forget(c)
	}
	e.mu.Unlock()

	e.emit(events)
	if err != nil {
		return "", err
	}
	return name, nil
}

// Disarm stops the named chain and returns it to Idle.
func (e *Engine) Disarm(name string) error {
	e.mu.Lock()
	c, err := e.lookup(name)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	ev, err := e.disarm(c)
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.emit([]Event{ev})
	return nil
}

// Reset returns the named chain to Idle from any state.
func (e *Engine) Reset(name string) error {
	e.mu.Lock()
	c, err := e.lookup(name)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if id, ok := c.TimerID(); ok {
		delete(e.byTimer, id)
	}
	c.Reset(e.pool)
	ev := e.event(EventReset, c, c.Cursor())
	if e.oneShots[name] {
		e.forget(c)
	}
	e.mu.Unlock()

	e.logger.Info("chain reset", "chain", name)
	e.emit([]Event{ev})
	return nil
}

// Append adds an action to the named chain.
func (e *Engine) Append(name string, a action.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.lookup(name)
	if err != nil {
		return err
	}
	return c.Append(a)
}

// AppendIfArmed appends a to the named chain only while it is armed. It
// reports whether the action was appended.
func (e *Engine) AppendIfArmed(name string, a action.Action) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.lookup(name)
	if err != nil {
		return false, err
	}
	if c.State() != Armed {
		return false, nil
	}
	return true, c.Append(a)
}

// HandleExpiry is the timer pool's expiry callback. Expiries for timers that
// were stopped, restarted or released since being scheduled are dropped.
func (e *Engine) HandleExpiry(id int, seq uint64) {
	e.mu.Lock()
	if !e.pool.Current(id, seq) {
		e.mu.Unlock()
		e.logger.Debug("dropping stale timer expiry", "timer", id, "seq", seq)
		return
	}
	c, ok := e.byTimer[id]
	if !ok {
		e.mu.Unlock()
		e.logger.Warn("timer expiry without owning chain", "timer", id)
		return
	}

	res := c.Expire(e.pool, outputs{e})
	events := e.stepEvents(c, res)
	name, faults := c.Name(), c.Faults()
	if res.Completed {
		delete(e.byTimer, id)
		if e.oneShots[c.Name()] {
			e.forget(c)
		}
	}
	e.mu.Unlock()

	if res.Err != nil {
		e.logger.Warn("chain step fault",
			"chain", name,
			"index", res.Index,
			"action", res.Action.String(),
			"error", res.Err,
		)
	}
	if res.Completed {
		e.logger.Info("chain completed", "chain", name, "faults", faults)
	}
	e.emit(events)
}

// Snapshot returns a copy of the named chain's state.
func (e *Engine) Snapshot(name string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	return e.snapshot(c), nil
}

// Snapshots returns every chain, ordered by name.
func (e *Engine) Snapshots() []Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.chains))
	for name := range e.chains {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		out = append(out, e.snapshot(e.chains[name]))
	}
	return out
}

// Pins returns a copy of every pin, ordered by ID.
func (e *Engine) Pins() []pin.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pins.Snapshot()
}

// AdvancePin steps the pin's pattern cursor, drives the pin to the new
// node's state and returns the node's dwell. Patterns are stepped by hand;
// they are never scheduled on the chain timer pool.
func (e *Engine) AdvancePin(id int) (pin.Snapshot, time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.pins.Get(id)
	if err != nil {
		return pin.Snapshot{}, 0, err
	}
	dwell, ok := p.AdvanceState()
	if !ok {
		return p.Snapshot(), 0, fmt.Errorf("%w: pin %d", ErrNoPattern, id)
	}

	node, _ := p.State()
	if p.IsOutput() {
		if p.Mode() == pin.ModeRaw {
			p.RecordValue(node.State)
		} else if err := p.SetLevel(pin.LevelOf(node.State)); err != nil {
			return p.Snapshot(), dwell, err
		}
		if err := e.write(p, p.Level()); err != nil {
			return p.Snapshot(), dwell, err
		}
	}
	return p.Snapshot(), dwell, nil
}

// SyncInputs reads every input pin from GPIO into the pin model.
func (e *Engine) SyncInputs() error {
	if e.gpio == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.pins.IDs() {
		p, _ := e.pins.Get(id) //nolint:errcheck // id came from the bank
		if p.IsOutput() {
			continue
		}
		level, err := e.gpio.Read(id)
		if err != nil {
			return fmt.Errorf("reading pin %d: %w", id, err)
		}
		p.RecordValue(int(level))
	}
	return nil
}

// DisarmAll disarms every armed chain. Used on shutdown.
func (e *Engine) DisarmAll() {
	e.mu.Lock()
	var events []Event
	for _, c := range e.chains {
		if c.State() != Armed {
			continue
		}
		if ev, err := e.disarm(c); err == nil {
			events = append(events, ev)
		}
	}
	e.mu.Unlock()

	e.emit(events)
}

// Stats reports chain and timer occupancy.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Chains:      len(e.chains),
		TimersInUse: e.pool.InUse(),
		PoolSize:    e.pool.Size(),
	}
	for _, c := range e.chains {
		if c.State() == Armed {
			s.Armed++
		}
	}
	return s
}

// ─── internals (caller holds e.mu) ──────────────────────────────────────────

func (e *Engine) lookup(name string) (*Chain, error) {
	c, ok := e.chains[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, name)
	}
	return c, nil
}

func (e *Engine) arm(c *Chain) ([]Event, error) {
	if err := c.Arm(e.pool); err != nil {
		return nil, err
	}
	events := []Event{e.event(EventArmed, c, 0)}
	if id, ok := c.TimerID(); ok {
		e.byTimer[id] = c
	} else {
		events = append(events, e.event(EventCompleted, c, c.Cursor()))
	}
	e.logger.Info("chain armed", "chain", c.Name(), "actions", c.Len())
	return events, nil
}

func (e *Engine) disarm(c *Chain) (Event, error) {
	id, held := c.TimerID()
	if err := c.Disarm(e.pool); err != nil {
		return Event{}, err
	}
	if held {
		delete(e.byTimer, id)
	}
	ev := e.event(EventDisarmed, c, 0)
	if e.oneShots[c.Name()] {
		e.forget(c)
	}
	e.logger.Info("chain disarmed", "chain", c.Name())
	return ev, nil
}

func (e *Engine) forget(c *Chain) {
	delete(e.chains, c.Name())
	delete(e.oneShots, c.Name())
}

func (e *Engine) snapshot(c *Chain) Snapshot {
	s := c.Snapshot()
	s.OneShot = e.oneShots[c.Name()]
	return s
}

func (e *Engine) event(t EventType, c *Chain, index int) Event {
	return Event{
		Type:      t,
		Chain:     c.Name(),
		OneShot:   e.oneShots[c.Name()],
		Index:     index,
		Faults:    c.Faults(),
		Timestamp: time.Now().UTC(),
	}
}

func (e *Engine) stepEvents(c *Chain, res StepResult) []Event {
	step := e.event(EventStep, c, res.Index)
	step.Action = res.Action.String()
	step.Outcome = res.Outcome.String()
	events := []Event{step}

	if res.Err != nil {
		fault := e.event(EventFault, c, res.Index)
		fault.Action = step.Action
		fault.Error = res.Err.Error()
		events = append(events, fault)
	}
	if res.Completed {
		events = append(events, e.event(EventCompleted, c, c.Cursor()))
	}
	return events
}

func (e *Engine) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	e.obsMu.RLock()
	defer e.obsMu.RUnlock()
	for _, ev := range events {
		for _, o := range e.observers {
			o.ChainEvent(ev)
		}
	}
}
