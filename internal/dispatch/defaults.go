package dispatch

import "github.com/nerrad567/secretbox-core/internal/action"

// Command codes of the default table.
const (
	CodeSetPin    byte = 0x01
	CodeTogglePin byte = 0x02
	CodeWait      byte = 0x03
	CodeBranch    byte = 0x04
	CodePlaySound byte = 0x05
	CodeHalt      byte = 0x06
)

// DefaultEntries returns the stock command set.
//
//	0x01 set_pin    pin:u8 level:u8
//	0x02 toggle_pin pin:u8
//	0x03 wait       ms:u16
//	0x04 branch     index:u8
//	0x05 play_sound sound:u8 ms:u16
//	0x06 halt
func DefaultEntries() []Entry {
	return []Entry{
		{Code: CodeSetPin, Name: "set_pin", Kind: action.SetPin, Fields: []Width{U8, U8}},
		{Code: CodeTogglePin, Name: "toggle_pin", Kind: action.TogglePin, Fields: []Width{U8}},
		{Code: CodeWait, Name: "wait", Kind: action.Wait, Fields: []Width{U16}},
		{Code: CodeBranch, Name: "branch", Kind: action.Branch, Fields: []Width{U8}},
		{Code: CodePlaySound, Name: "play_sound", Kind: action.PlaySound, Fields: []Width{U8, U16}},
		{Code: CodeHalt, Name: "halt", Kind: action.Halt},
	}
}

// DefaultTable returns a table of DefaultEntries.
func DefaultTable() *Table {
	t, err := NewTable(DefaultEntries()...)
	if err != nil {
		panic("dispatch: default table is invalid: " + err.Error())
	}
	return t
}
