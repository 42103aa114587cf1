package panel

import (
	"errors"
	"fmt"
	"strings"
)

// EntryKind tags a script entry.
type EntryKind byte

const (
	KindWrite EntryKind = iota
	KindDelay
)

func (k EntryKind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindDelay:
		return "delay"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Entry is one step of a command script. For KindWrite, Data[0] is the
// register opcode and Data[1:] the payload. For KindDelay, Data[0] is the
// delay in milliseconds. An entry with empty Data terminates the script.
type Entry struct {
	Kind EntryKind
	Data []byte
}

// IsSentinel reports whether e marks the end of a script.
func (e Entry) IsSentinel() bool {
	return len(e.Data) == 0
}

// Opcode returns the register address of a write entry.
func (e Entry) Opcode() byte {
	return e.Data[0]
}

// Payload returns the bytes following the opcode, empty for opcode-only writes.
func (e Entry) Payload() []byte {
	return e.Data[1:]
}

func (e Entry) String() string {
	switch {
	case e.IsSentinel():
		return "end"
	case e.Kind == KindDelay:
		return fmt.Sprintf("delay %dms", e.Data[0])
	case e.Kind == KindWrite:
		var b strings.Builder
		fmt.Fprintf(&b, "dcs 0x%02X", e.Data[0])
		for _, p := range e.Data[1:] {
			fmt.Fprintf(&b, " 0x%02X", p)
		}
		return b.String()
	default:
		return fmt.Sprintf("%s % X", e.Kind, e.Data)
	}
}

// Script is an ordered command list ending with a sentinel entry.
type Script []Entry

// DCS builds a register write entry.
func DCS(opcode byte, payload ...byte) Entry {
	return Entry{Kind: KindWrite, Data: append([]byte{opcode}, payload...)}
}

// Delay builds a delay entry.
func Delay(ms byte) Entry {
	return Entry{Kind: KindDelay, Data: []byte{ms}}
}

// SwitchPage builds the vendor page-select write.
func SwitchPage(page byte) Entry {
	return DCS(CmdSwitchPage, vendorID0, vendorID1, page)
}

// End is the script terminator.
var End = Entry{}

// Len returns the number of entries before the sentinel.
func (s Script) Len() int {
	for i, e := range s {
		if e.IsSentinel() {
			return i
		}
	}
	return len(s)
}

func (s Script) String() string {
	var b strings.Builder
	for i, e := range s {
		fmt.Fprintf(&b, "%4d  %s\n", i, e)
		if e.IsSentinel() {
			break
		}
	}
	return b.String()
}

// ErrInvalidEntry reports a malformed script entry.
var ErrInvalidEntry = errors.New("panel: invalid script entry")

// MarshalBinary encodes the script as consecutive {kind, length, bytes}
// records closed by a zero-length record.
func (s Script) MarshalBinary() ([]byte, error) {
	var out []byte
	for i, e := range s {
		if e.IsSentinel() {
			break
		}
		if len(e.Data) > 0xFF {
			return nil, fmt.Errorf("panel: entry %d: %d bytes: %w", i, len(e.Data), ErrInvalidEntry)
		}
		out = append(out, byte(e.Kind), byte(len(e.Data)))
		out = append(out, e.Data...)
	}
	return append(out, byte(KindWrite), 0), nil
}

// ParseScript decodes the MarshalBinary format. Bytes after the terminator
// are ignored.
func ParseScript(b []byte) (Script, error) {
	var s Script
	for off := 0; ; {
		if off+2 > len(b) {
			return nil, fmt.Errorf("panel: script truncated at offset %d: %w", off, ErrInvalidEntry)
		}
		kind, n := EntryKind(b[off]), int(b[off+1])
		off += 2
		if n == 0 {
			return append(s, End), nil
		}
		if kind != KindWrite && kind != KindDelay {
			return nil, fmt.Errorf("panel: entry %d: %s: %w", len(s), kind, ErrInvalidEntry)
		}
		if off+n > len(b) {
			return nil, fmt.Errorf("panel: entry %d truncated: %w", len(s), ErrInvalidEntry)
		}
		s = append(s, Entry{Kind: kind, Data: append([]byte(nil), b[off:off+n]...)})
		off += n
	}
}
