package bridge

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/secretbox-core/internal/action"
	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/dispatch"
	"github.com/nerrad567/secretbox-core/internal/infrastructure/mqtt"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type mockEngine struct {
	states   map[string]string
	appended map[string][]action.Action
	oneShots []action.Action
	controls []string
	armErr   error
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		states:   map[string]string{"show": "armed"},
		appended: make(map[string][]action.Action),
	}
}

func (m *mockEngine) Arm(name string) error {
	if m.armErr != nil {
		return m.armErr
	}
	m.controls = append(m.controls, "arm:"+name)
	return nil
}

func (m *mockEngine) Disarm(name string) error {
	m.controls = append(m.controls, "disarm:"+name)
	return nil
}

func (m *mockEngine) Reset(name string) error {
	m.controls = append(m.controls, "reset:"+name)
	return nil
}

func (m *mockEngine) AppendIfArmed(name string, a action.Action) (bool, error) {
	state, ok := m.states[name]
	if !ok {
		return false, chain.ErrChainNotFound
	}
	if state != "armed" {
		return false, nil
	}
	m.appended[name] = append(m.appended[name], a)
	return true, nil
}

func (m *mockEngine) ArmOneShot(a action.Action) (string, error) {
	m.oneShots = append(m.oneShots, a)
	return "oneshot-test", nil
}

type mockTransport struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published map[string][][]byte
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		handlers:  make(map[string]mqtt.MessageHandler),
		published: make(map[string][][]byte),
	}
}

func (m *mockTransport) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockTransport) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[topic] = append(m.published[topic], payload)
	return nil
}

func newTestBridge(t *testing.T, eng Engine, policy Policy) *Bridge {
	t.Helper()
	b, err := New(dispatch.DefaultTable(), eng, policy, "show", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyOneShot {
		t.Errorf("ParsePolicy(\"\") = %v, %v", p, err)
	}
	if p, err := ParsePolicy("append"); err != nil || p != PolicyAppend {
		t.Errorf("ParsePolicy(append) = %v, %v", p, err)
	}
	if _, err := ParsePolicy("queue"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("ParsePolicy(queue) error = %v", err)
	}
}

func TestNew_AppendNeedsTarget(t *testing.T) {
	if _, err := New(dispatch.DefaultTable(), newMockEngine(), PolicyAppend, "", nil); !errors.Is(err, ErrNoTarget) {
		t.Errorf("New() error = %v, want ErrNoTarget", err)
	}
}

func TestHandleFrame_Errors(t *testing.T) {
	eng := newMockEngine()
	b := newTestBridge(t, eng, PolicyOneShot)

	if _, err := b.HandleFrame(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("empty frame error = %v", err)
	}
	if _, err := b.HandleFrame([]byte{0x05, 0x02, 0x01}); !errors.Is(err, dispatch.ErrPayloadLengthMismatch) {
		t.Errorf("short play_sound error = %v", err)
	}
	if _, err := b.HandleFrame([]byte{0x99}); !errors.Is(err, dispatch.ErrNotFound) {
		t.Errorf("unknown code error = %v", err)
	}
	if len(eng.oneShots) != 0 {
		t.Errorf("rejected frames armed %d chains", len(eng.oneShots))
	}
}

func TestHandleFrame_OneShot(t *testing.T) {
	eng := newMockEngine()
	b := newTestBridge(t, eng, PolicyOneShot)

	res, err := b.HandleFrame([]byte{0x01, 0x04, 0x01})
	if err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}
	if res.Chain != "oneshot-test" || res.Appended {
		t.Errorf("result = %+v", res)
	}
	if len(eng.oneShots) != 1 || eng.oneShots[0].Kind != action.SetPin {
		t.Errorf("one-shots = %v", eng.oneShots)
	}
	if len(eng.appended["show"]) != 0 {
		t.Error("oneshot policy appended to target")
	}
}

func TestHandleFrame_Append(t *testing.T) {
	tests := []struct {
		name         string
		targetState  string
		wantAppended bool
	}{
		{"target armed", "armed", true},
		{"target idle", "idle", false},
		{"target completed", "completed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newMockEngine()
			eng.states["show"] = tt.targetState
			b := newTestBridge(t, eng, PolicyAppend)

			res, err := b.HandleFrame([]byte{0x03, 0x00, 0xc8})
			if err != nil {
				t.Fatalf("HandleFrame: %v", err)
			}
			if res.Appended != tt.wantAppended {
				t.Errorf("Appended = %v, want %v", res.Appended, tt.wantAppended)
			}
			if tt.wantAppended && (res.Chain != "show" || len(eng.appended["show"]) != 1) {
				t.Errorf("result = %+v, appended = %v", res, eng.appended)
			}
			if !tt.wantAppended && len(eng.oneShots) != 1 {
				t.Errorf("fallback armed %d one-shots, want 1", len(eng.oneShots))
			}
		})
	}
}

func TestControl(t *testing.T) {
	eng := newMockEngine()
	b := newTestBridge(t, eng, PolicyOneShot)

	for _, op := range []string{"arm", "disarm", "reset"} {
		if err := b.Control("intro", op); err != nil {
			t.Errorf("Control(%s): %v", op, err)
		}
	}
	if strings.Join(eng.controls, ",") != "arm:intro,disarm:intro,reset:intro" {
		t.Errorf("controls = %v", eng.controls)
	}
	if err := b.Control("intro", "explode"); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("Control(explode) error = %v", err)
	}

	eng.armErr = chain.ErrAlreadyArmed
	if err := b.Control("intro", "arm"); !errors.Is(err, chain.ErrAlreadyArmed) {
		t.Errorf("Control(arm) error = %v, want wrapped ErrAlreadyArmed", err)
	}
}

func TestBind(t *testing.T) {
	eng := newMockEngine()
	b := newTestBridge(t, eng, PolicyOneShot)
	tr := newMockTransport()

	if err := b.Bind(tr); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	topics := mqtt.Topics{}

	rx, ok := tr.handlers[topics.I2CReceive()]
	if !ok {
		t.Fatalf("no handler on %s", topics.I2CReceive())
	}
	if err := rx(topics.I2CReceive(), []byte{0x06}); err != nil {
		t.Fatalf("frame handler: %v", err)
	}
	if err := rx(topics.I2CReceive(), []byte{}); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("empty frame handler error = %v", err)
	}

	acks := tr.published[topics.I2CAck()]
	if len(acks) != 2 {
		t.Fatalf("acks = %d, want 2", len(acks))
	}
	var first, second Ack
	_ = json.Unmarshal(acks[0], &first)  //nolint:errcheck // checked by fields
	_ = json.Unmarshal(acks[1], &second) //nolint:errcheck // checked by fields
	if first.Chain != "oneshot-test" || first.Error != "" {
		t.Errorf("first ack = %+v", first)
	}
	if second.Error == "" {
		t.Error("second ack has no error")
	}

	ctl := tr.handlers[topics.AllChainControl()]
	if err := ctl(topics.ChainControl("intro", mqtt.OpArm), nil); err != nil {
		t.Fatalf("control handler: %v", err)
	}
	if err := ctl(topics.ChainEvent("intro"), nil); err != nil {
		t.Errorf("event topic treated as control: %v", err)
	}
	if len(eng.controls) != 1 || eng.controls[0] != "arm:intro" {
		t.Errorf("controls = %v", eng.controls)
	}
}

type countingSink map[string]int

func (c countingSink) CountFrame(result string) { c[result]++ }

func TestHandleFrame_Counts(t *testing.T) {
	eng := newMockEngine()
	b := newTestBridge(t, eng, PolicyAppend)
	counts := countingSink{}
	b.SetFrameCounter(counts)

	b.HandleFrame([]byte{0x03, 0x00, 0xc8}) //nolint:errcheck // counted below
	eng.states["show"] = "idle"
	b.HandleFrame([]byte{0x03, 0x00, 0xc8}) //nolint:errcheck // counted below
	b.HandleFrame([]byte{0x99})             //nolint:errcheck // counted below

	want := countingSink{FrameAppended: 1, FrameOneShot: 1, FrameRejected: 1}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("counts[%s] = %d, want %d", k, counts[k], v)
		}
	}
}
