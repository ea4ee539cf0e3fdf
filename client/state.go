package client

import "sync/atomic"

type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Handshaking
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Status carries the lock-free flags other goroutines poll to learn whether
// the connection manager is running and ready for commands. It is owned by
// the caller; share one across clients only if they should report together.
type Status struct {
	started atomic.Bool
	ready   atomic.Bool
	state   atomic.Int32
}

func NewStatus() *Status {
	return &Status{}
}

func (s *Status) Started() bool { return s.started.Load() }

// Ready reports whether the manager is connected and the handshake finished.
func (s *Status) Ready() bool { return s.started.Load() && s.ready.Load() }

func (s *Status) State() ConnectionState { return ConnectionState(s.state.Load()) }

func (s *Status) setState(st ConnectionState) {
	s.state.Store(int32(st))
	s.ready.Store(st == Connected)
}
