//go:build !windows

package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

func dialNative(ctx context.Context, timeout time.Duration) (Transport, error) {
	var d net.Dialer
	d.Timeout = timeout

	lastErr := error(ErrNoSocket)
	for _, path := range socketCandidates(ipcBaseDir(os.Getenv)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		c, err := d.DialContext(ctx, "unix", path)
		if err != nil {
			lastErr = err
			continue
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			_ = c.Close()
			return nil, errors.New("ipc: unexpected unix conn type")
		}
		return &unixTransport{UnixConn: uc}, nil
	}
	return nil, lastErr
}

type unixTransport struct {
	*net.UnixConn
}

// Close shuts both directions down before releasing the socket so Discord
// sees an orderly hang-up.
func (t *unixTransport) Close() error {
	shutdownErr := t.UnixConn.CloseWrite()
	if err := t.UnixConn.Close(); err != nil {
		return err
	}
	return shutdownErr
}
