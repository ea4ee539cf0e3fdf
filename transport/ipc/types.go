// Package ipc implements Discord's local RPC framing and the transports that
// carry it: a unix socket or named pipe, with the desktop client's websocket
// server as a fallback.
package ipc

import "fmt"

type OpCode uint32

const (
	OpHandshake OpCode = 0
	OpFrame     OpCode = 1
	OpClose     OpCode = 2
	OpPing      OpCode = 3
	OpPong      OpCode = 4
)

// Valid reports whether op is one of the five opcodes Discord speaks.
func (op OpCode) Valid() bool {
	return op <= OpPong
}

func (op OpCode) String() string {
	switch op {
	case OpHandshake:
		return "HANDSHAKE"
	case OpFrame:
		return "FRAME"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	default:
		return fmt.Sprintf("OpCode(%d)", uint32(op))
	}
}

// Message is one wire frame: an opcode and its JSON payload.
type Message struct {
	Opcode  OpCode
	Payload string
}

func (m Message) String() string {
	return fmt.Sprintf("%s %s", m.Opcode, m.Payload)
}
