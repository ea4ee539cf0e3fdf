package ipc

import (
	"errors"
	"net"
	"os"
	"syscall"
)

var (
	ErrConversion       = errors.New("ipc: unknown opcode")
	ErrConnectionClosed = errors.New("ipc: connection closed")
	ErrNoSocket         = errors.New("ipc: no discord ipc socket found")
	ErrWouldBlock       = errors.New("ipc: operation would block")
	ErrShortFrame       = errors.New("ipc: short frame header")
	ErrLengthMismatch   = errors.New("ipc: frame length mismatch")
	ErrPayloadTooLarge  = errors.New("ipc: payload too large")
)

// IsWouldBlock reports whether err only means "nothing to read yet". Read
// deadlines and EAGAIN both count; the caller is expected to retry.
func IsWouldBlock(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWouldBlock) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, syscall.EAGAIN) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsRefused reports whether err means nobody is listening, which for this
// protocol means Discord is not running.
func IsRefused(err error) bool {
	return errors.Is(err, ErrNoSocket) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}
