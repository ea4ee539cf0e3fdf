package ipc

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	conn := NewConn(client, zerolog.Nop())
	t.Cleanup(func() {
		_ = conn.Close()
		_ = server.Close()
	})
	return conn, server
}

func TestConnHandshake(t *testing.T) {
	conn, server := newPipeConn(t)

	got := make(chan Message, 1)
	go func() {
		m, err := ReadMessage(server)
		if err != nil {
			close(got)
			return
		}
		got <- m
		_ = WriteMessage(server, Message{Opcode: OpFrame, Payload: `{"cmd":"DISPATCH","evt":"READY","data":{"v":1}}`})
	}()

	reply, err := conn.Handshake(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, OpFrame, reply.Opcode)
	assert.Contains(t, reply.Payload, `"READY"`)

	sent, ok := <-got
	require.True(t, ok, "server never saw the handshake")
	assert.Equal(t, OpHandshake, sent.Opcode)

	var hs Handshake
	require.NoError(t, json.Unmarshal([]byte(sent.Payload), &hs))
	assert.Equal(t, 1, hs.V)
	assert.Equal(t, "123", hs.ClientID)
	assert.NotEmpty(t, hs.Nonce)
}

func TestConnTryRecvKeepsPartialFrame(t *testing.T) {
	conn, server := newPipeConn(t)

	frame := Encode(Message{Opcode: OpFrame, Payload: `{"cmd":"SET_ACTIVITY","data":{}}`})
	release := make(chan struct{})
	go func() {
		_, _ = server.Write(frame[:5])
		<-release
		_, _ = server.Write(frame[5:])
	}()

	_, err := conn.TryRecv(50 * time.Millisecond)
	require.ErrorIs(t, err, ErrWouldBlock)
	assert.Equal(t, 5, conn.frames.buffered())

	close(release)
	m, err := conn.TryRecv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"cmd":"SET_ACTIVITY","data":{}}`, m.Payload)
}

func TestConnTryRecvPeerClosed(t *testing.T) {
	conn, server := newPipeConn(t)
	require.NoError(t, server.Close())

	_, err := conn.TryRecv(time.Second)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConnTryRecvUnknownOpcode(t *testing.T) {
	conn, server := newPipeConn(t)
	go func() {
		_, _ = server.Write(rawFrame(7, "{}"))
	}()

	_, err := conn.TryRecv(time.Second)
	assert.ErrorIs(t, err, ErrConversion)
}

func TestConnPing(t *testing.T) {
	conn, server := newPipeConn(t)
	go func() {
		m, err := ReadMessage(server)
		if err != nil || m.Opcode != OpPing {
			return
		}
		_ = WriteMessage(server, Message{Opcode: OpPong, Payload: m.Payload})
	}()

	op, err := conn.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OpPong, op)
}

func TestConnPingKeepsOtherReply(t *testing.T) {
	conn, server := newPipeConn(t)
	event := Message{Opcode: OpFrame, Payload: `{"cmd":"DISPATCH","evt":"ACTIVITY_JOIN","data":{"secret":"s"}}`}
	go func() {
		if _, err := ReadMessage(server); err != nil {
			return
		}
		_ = WriteMessage(server, event)
	}()

	op, err := conn.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OpFrame, op)

	m, err := conn.TryRecv(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, event, m)
}

func TestConnRecvHonorsContext(t *testing.T) {
	conn, _ := newPipeConn(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := conn.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	conn, _ := newPipeConn(t)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}
