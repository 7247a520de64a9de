package action

import "fmt"

// Kind selects a handler from the closed handler set.
type Kind uint8

const (
	kindInvalid Kind = iota

	// SetPin(pin, level) drives an output pin to 0 or 1.
	SetPin
	// TogglePin(pin) inverts an output pin's last known level.
	TogglePin
	// PlaySound(sound, duration_ms) asks the sound sink to play a clip.
	PlaySound
	// Wait(delay_ms) holds the chain on this step for delay_ms.
	Wait
	// Branch(target_index) moves the cursor to another step.
	Branch
	// Halt() completes the chain.
	Halt

	kindCount
)

var kindInfo = [kindCount]struct {
	name  string
	arity int
}{
	kindInvalid: {"invalid", 0},
	SetPin:      {"set_pin", 2},
	TogglePin:   {"toggle_pin", 1},
	PlaySound:   {"play_sound", 2},
	Wait:        {"wait", 1},
	Branch:      {"branch", 1},
	Halt:        {"halt", 0},
}

// Valid reports whether k is a member of the handler set.
func (k Kind) Valid() bool {
	return k > kindInvalid && k < kindCount
}

// Arity returns the number of arguments the kind expects, or -1 if invalid.
func (k Kind) Arity() int {
	if !k.Valid() {
		return -1
	}
	return kindInfo[k].arity
}

// String returns the kind's snake_case name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindInfo[k].name
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := kindInvalid + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind looks up a kind by its snake_case name.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if kindInfo[k].name == name {
			return k, nil
		}
	}
	return kindInvalid, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
