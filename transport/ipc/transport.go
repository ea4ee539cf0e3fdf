package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultDialTimeout = 2 * time.Second
	DefaultIOTimeout   = 30 * time.Second
	socketSlots        = 10
)

// Transport is a connected duplex byte stream to the local Discord client.
type Transport interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Dialer finds and connects to a running Discord client. The platform's native
// transport (unix socket or named pipe) is tried first, then the local
// websocket RPC server.
type Dialer struct {
	ClientID uint64

	// WebSocketPort pins the websocket probe to one port instead of the
	// 6463-6472 range.
	WebSocketPort    int
	DisableWebSocket bool

	Timeout time.Duration
	Logger  zerolog.Logger
}

func (d Dialer) Dial(ctx context.Context) (Transport, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	t, nativeErr := dialNative(ctx, timeout)
	if nativeErr == nil {
		return t, nil
	}
	d.Logger.Debug().Err(nativeErr).Msg("native ipc transport unavailable")

	if d.DisableWebSocket {
		return nil, nativeErr
	}
	t, wsErr := dialWebSocket(ctx, d.ClientID, d.WebSocketPort, timeout)
	if wsErr == nil {
		d.Logger.Debug().Msg("connected over websocket fallback")
		return t, nil
	}
	d.Logger.Debug().Err(wsErr).Msg("websocket transport unavailable")
	return nil, fmt.Errorf("%w: %w", ErrNoSocket, errors.Join(nativeErr, wsErr))
}
