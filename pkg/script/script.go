// Package script serializes and parses Bitcoin Script.
//
// A script is a sequence of commands; a command is either a named
// opcode or a data push. Data pushes always use the minimal push
// opcode for their length.
package script

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Command is one script element: a named opcode (Op set, Data nil) or
// a data push (Data set, possibly empty, Op empty).
type Command struct {
	Op   string
	Data []byte
}

// Op returns an opcode command.
func Op(name string) Command { return Command{Op: strings.ToUpper(name)} }

// Data returns a data-push command.
func Data(b []byte) Command { return Command{Data: b, Op: ""} }

// Int returns the command for small integers in [-1, 16], which have
// dedicated opcodes.
func Int(i int) (Command, error) {
	switch {
	case i == -1:
		return Op("OP_1NEGATE"), nil
	case i == 0:
		return Op("OP_0"), nil
	case i >= 1 && i <= 16:
		return Op(fmt.Sprintf("OP_%d", i)), nil
	default:
		return Command{}, fmt.Errorf("script: no dedicated opcode for %d", i)
	}
}

// IsData reports whether c is a data push.
func (c Command) IsData() bool { return c.Op == "" }

// pushData returns the minimal push encoding of data.
func pushData(data []byte) []byte {
	n := len(data)
	var out []byte
	switch {
	case n < int(OpPushData1):
		out = []byte{byte(n)}
	case n < 256:
		out = []byte{OpPushData1, byte(n)}
	case n < 65536:
		out = make([]byte, 3)
		out[0] = OpPushData2
		binary.LittleEndian.PutUint16(out[1:], uint16(n))
	default:
		out = make([]byte, 5)
		out[0] = OpPushData4
		binary.LittleEndian.PutUint32(out[1:], uint32(n))
	}
	return append(out, data...)
}

// Serialize returns the byte encoding of the command sequence.
func Serialize(commands []Command) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range commands {
		if c.IsData() {
			buf.Write(pushData(c.Data))
			continue
		}
		code, ok := OpCodes[c.Op]
		if !ok {
			if rest, found := strings.CutPrefix(c.Op, "OP_UNKNOWN_0x"); found {
				n, err := strconv.ParseUint(rest, 16, 8)
				if err != nil {
					return nil, fmt.Errorf("script: bad unknown opcode %q", c.Op)
				}
				buf.WriteByte(byte(n))
				continue
			}
			return nil, fmt.Errorf("script: unknown opcode %q", c.Op)
		}
		buf.WriteByte(code)
	}
	return buf.Bytes(), nil
}

// MustSerialize is Serialize for command sequences built from
// known-good opcodes; it panics on unknown names.
func MustSerialize(commands []Command) []byte {
	b, err := Serialize(commands)
	if err != nil {
		panic(err)
	}
	return b
}

// Parse decodes a serialized script into its command sequence.
// Opcodes without a name are preserved as OP_UNKNOWN_0xNN so the
// round trip does not lose bytes.
func Parse(raw []byte) ([]Command, error) {
	r := bytes.NewReader(raw)
	var out []Command
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return out, nil
		}
		switch {
		case b < OpPushData1:
			if b == 0 {
				out = append(out, Op("OP_0"))
				continue
			}
			data := make([]byte, b)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("script: truncated push: %w", err)
			}
			out = append(out, Data(data))
		case b == OpPushData1:
			length, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("script: truncated OP_PUSHDATA1: %w", err)
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("script: truncated push: %w", err)
			}
			out = append(out, Data(data))
		case b == OpPushData2, b == OpPushData4:
			width := 2
			if b == OpPushData4 {
				width = 4
			}
			lb := make([]byte, 4)
			if _, err := io.ReadFull(r, lb[:width]); err != nil {
				return nil, fmt.Errorf("script: truncated push length: %w", err)
			}
			length := binary.LittleEndian.Uint32(lb)
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("script: truncated push: %w", err)
			}
			out = append(out, Data(data))
		default:
			name, ok := OpCodeNames[b]
			if !ok {
				// not through Op(): ToUpper would mangle the 0x prefix
				out = append(out, Command{Op: fmt.Sprintf("OP_UNKNOWN_0x%02X", b)})
				continue
			}
			out = append(out, Op(name))
		}
	}
}
