// Package dispatch maps inbound command codes to actions.
//
// Each table entry names a handler kind and the byte width of each of its
// arguments. A payload is accepted only if its length equals the sum of the
// widths; fields are decoded big-endian in order.
package dispatch

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/nerrad567/secretbox-core/internal/action"
)

// Width is the byte width of one encoded argument.
type Width uint8

const (
	U8  Width = 1
	U16 Width = 2
	U32 Width = 4
)

func (w Width) valid() bool {
	return w == U8 || w == U16 || w == U32
}

// Entry describes one command code.
type Entry struct {
	Code   byte
	Name   string
	Kind   action.Kind
	Fields []Width
}

// ArgBytes returns the payload length the entry expects.
func (e Entry) ArgBytes() int {
	n := 0
	for _, w := range e.Fields {
		n += int(w)
	}
	return n
}

func (e Entry) validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: code 0x%02x: %w", ErrInvalidEntry, e.Code, action.ErrUnknownKind)
	}
	if len(e.Fields) != e.Kind.Arity() {
		return fmt.Errorf("%w: code 0x%02x: %s takes %d fields, entry has %d: %w",
			ErrInvalidEntry, e.Code, e.Kind, e.Kind.Arity(), len(e.Fields), action.ErrArgumentCountMismatch)
	}
	for i, w := range e.Fields {
		if !w.valid() {
			return fmt.Errorf("%w: code 0x%02x field %d has width %d", ErrInvalidEntry, e.Code, i, w)
		}
	}
	return nil
}

// Table is an immutable command lookup table.
type Table struct {
	entries map[byte]Entry
}

// NewTable builds a table, rejecting duplicate codes and malformed entries.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{entries: make(map[byte]Entry, len(entries))}
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.entries[e.Code]; dup {
			return nil, fmt.Errorf("%w: 0x%02x", ErrDuplicateCode, e.Code)
		}
		e.Fields = append([]Width(nil), e.Fields...)
		t.entries[e.Code] = e
	}
	return t, nil
}

// Lookup returns the kind and expected payload length for code.
func (t *Table) Lookup(code byte) (action.Kind, int, error) {
	e, ok := t.entries[code]
	if !ok {
		return 0, 0, fmt.Errorf("%w: 0x%02x", ErrNotFound, code)
	}
	return e.Kind, e.ArgBytes(), nil
}

// Dispatch decodes payload for code and builds the action.
func (t *Table) Dispatch(code byte, payload []byte) (action.Action, error) {
	e, ok := t.entries[code]
	if !ok {
		return action.Action{}, fmt.Errorf("%w: 0x%02x", ErrNotFound, code)
	}
	if len(payload) != e.ArgBytes() {
		return action.Action{}, fmt.Errorf("%w: 0x%02x (%s) expects %d bytes, got %d",
			ErrPayloadLengthMismatch, code, e.Name, e.ArgBytes(), len(payload))
	}

	args := make([]int, 0, len(e.Fields))
	off := 0
	for _, w := range e.Fields {
		field := payload[off : off+int(w)]
		switch w {
		case U8:
			args = append(args, int(field[0]))
		case U16:
			args = append(args, int(binary.BigEndian.Uint16(field)))
		case U32:
			args = append(args, int(binary.BigEndian.Uint32(field)))
		}
		off += int(w)
	}
	return action.New(e.Kind, args...)
}

// Entries returns every entry ordered by code.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
