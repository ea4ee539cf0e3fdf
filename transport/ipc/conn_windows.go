//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func dialNative(ctx context.Context, timeout time.Duration) (Transport, error) {
	lastErr := error(ErrNoSocket)
	for i := 0; i < socketSlots; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := dialPipe(ctx, pipePath(i), timeout)
		if err != nil {
			lastErr = err
			continue
		}
		return pipeTransport{Conn: c}, nil
	}
	return nil, lastErr
}

func dialPipe(ctx context.Context, path string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return winio.DialPipeContext(ctx, path)
}

func pipePath(n int) string {
	return fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, n)
}

type pipeTransport struct {
	net.Conn
}
