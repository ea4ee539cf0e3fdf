package ipc

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RetryInterval is how long the blocking wrappers wait between polls.
const RetryInterval = 500 * time.Millisecond

// Handshake is the first frame sent on a fresh transport.
type Handshake struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
	Nonce    string `json:"nonce"`
}

func NewHandshake(clientID uint64) Handshake {
	return Handshake{
		V:        1,
		ClientID: strconv.FormatUint(clientID, 10),
		Nonce:    uuid.NewString(),
	}
}

// Conn speaks the frame protocol over a Transport. It is not safe for
// concurrent use; the connection manager owns it.
type Conn struct {
	t   Transport
	log zerolog.Logger

	WriteTimeout time.Duration

	frames  frameBuffer
	scratch []byte
	unread  *Message

	closeOnce sync.Once
	closeErr  error
}

func NewConn(t Transport, logger zerolog.Logger) *Conn {
	return &Conn{
		t:            t,
		log:          logger.With().Str("component", "ipc").Logger(),
		WriteTimeout: DefaultIOTimeout,
		scratch:      make([]byte, 4096),
	}
}

func (c *Conn) Send(m Message) error {
	if c.WriteTimeout > 0 {
		if err := c.t.SetWriteDeadline(time.Now().Add(c.WriteTimeout)); err != nil {
			return err
		}
	}
	if _, err := c.t.Write(Encode(m)); err != nil {
		return err
	}
	c.log.Trace().Stringer("op", m.Opcode).Str("payload", m.Payload).Msg("->")
	return nil
}

// SendOp marshals payload and sends it with op.
func (c *Conn) SendOp(op OpCode, payload any) error {
	m, err := NewMessage(op, payload)
	if err != nil {
		return err
	}
	return c.Send(m)
}

// TryRecv waits up to wait for one complete frame. When nothing complete
// arrives in time it returns ErrWouldBlock and keeps any partial bytes for the
// next call.
func (c *Conn) TryRecv(wait time.Duration) (Message, error) {
	if c.unread != nil {
		m := *c.unread
		c.unread = nil
		return m, nil
	}
	for {
		m, ok, err := c.frames.next()
		if err != nil {
			return Message{}, err
		}
		if ok {
			c.log.Trace().Stringer("op", m.Opcode).Str("payload", m.Payload).Msg("<-")
			return m, nil
		}

		if err := c.t.SetReadDeadline(time.Now().Add(wait)); err != nil {
			return Message{}, err
		}
		n, err := c.t.Read(c.scratch)
		if n > 0 {
			c.frames.write(c.scratch[:n])
			continue
		}
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return Message{}, ErrConnectionClosed
		case IsWouldBlock(err):
			if c.frames.buffered() > 0 {
				c.log.Trace().Int("buffered", c.frames.buffered()).Msg("partial frame pending")
			}
			return Message{}, ErrWouldBlock
		default:
			return Message{}, err
		}
	}
}

// Recv blocks until a frame arrives, the context ends or a real error occurs.
func (c *Conn) Recv(ctx context.Context) (Message, error) {
	for {
		m, err := c.TryRecv(RetryInterval)
		if !IsWouldBlock(err) {
			return m, err
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
	}
}

// Handshake sends the handshake frame and returns Discord's reply. The reply
// is not inspected; callers must check it is a READY dispatch.
func (c *Conn) Handshake(ctx context.Context, clientID uint64) (Message, error) {
	if err := c.SendOp(OpHandshake, NewHandshake(clientID)); err != nil {
		return Message{}, err
	}
	return c.Recv(ctx)
}

// Ping sends an empty ping and returns the opcode of the reply. A reply that
// is not a pong is kept for the next TryRecv.
func (c *Conn) Ping(ctx context.Context) (OpCode, error) {
	if err := c.SendOp(OpPing, struct{}{}); err != nil {
		return 0, err
	}
	m, err := c.Recv(ctx)
	if err != nil {
		return 0, err
	}
	if m.Opcode != OpPong {
		c.unread = &m
	}
	return m.Opcode, nil
}

// Close shuts the transport down once. Failures are logged and returned but
// callers are free to ignore them.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.t.Close()
		if c.closeErr != nil {
			c.log.Warn().Err(c.closeErr).Msg("failed to shut down ipc transport")
		}
	})
	return c.closeErr
}
