package ipc

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Discord's local RPC server listens on the first free port of this range.
const (
	FirstWebSocketPort = 6463
	LastWebSocketPort  = 6472
)

func webSocketURL(port int, clientID uint64) string {
	return fmt.Sprintf("ws://127.0.0.1:%d/?v=1&client_id=%d", port, clientID)
}

func webSocketPorts(override int) []int {
	if override > 0 {
		return []int{override}
	}
	ports := make([]int, 0, LastWebSocketPort-FirstWebSocketPort+1)
	for p := FirstWebSocketPort; p <= LastWebSocketPort; p++ {
		ports = append(ports, p)
	}
	return ports
}

func dialWebSocket(ctx context.Context, clientID uint64, port int, timeout time.Duration) (Transport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	lastErr := error(ErrNoSocket)
	for _, p := range webSocketPorts(port) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conn, resp, err := dialer.DialContext(ctx, webSocketURL(p, clientID), nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			lastErr = fmt.Errorf("websocket port %d: %w", p, err)
			continue
		}
		return newWSTransport(conn), nil
	}
	return nil, lastErr
}

// wsTransport adapts a websocket to the byte-stream Transport. A reader
// goroutine pumps messages into a channel so that a read deadline expiring
// does not break the websocket, which gorilla treats as fatal.
type wsTransport struct {
	conn *websocket.Conn

	msgs    chan []byte
	readErr error
	done    chan struct{}

	mu       sync.Mutex
	pending  []byte
	deadline time.Time

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	t := &wsTransport{
		conn: conn,
		msgs: make(chan []byte, 16),
		done: make(chan struct{}),
	}
	go t.readPump()
	return t
}

func (t *wsTransport) readPump() {
	defer close(t.done)
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.readErr = err
			close(t.msgs)
			return
		}
		t.msgs <- data
	}
}

func (t *wsTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pending) == 0 {
		var timeout <-chan time.Time
		if !t.deadline.IsZero() {
			wait := time.Until(t.deadline)
			if wait <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer := time.NewTimer(wait)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case data, ok := <-t.msgs:
			if !ok {
				if websocket.IsCloseError(t.readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, ErrConnectionClosed
				}
				return 0, t.readErr
			}
			t.pending = data
		case <-timeout:
			return 0, os.ErrDeadlineExceeded
		}
	}
	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *wsTransport) Write(p []byte) (int, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *wsTransport) SetReadDeadline(d time.Time) error {
	t.mu.Lock()
	t.deadline = d
	t.mu.Unlock()
	return nil
}

func (t *wsTransport) SetWriteDeadline(d time.Time) error {
	return t.conn.SetWriteDeadline(d)
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		t.writeMu.Unlock()
		err = t.conn.Close()
		go func() {
			// unblock the pump if nobody is reading
			for range t.msgs {
			}
		}()
		<-t.done
	})
	return err
}
