package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ffx64/discord-rpc-go/transport/ipc"
	"github.com/rs/zerolog"
)

// manager owns the live connection. One goroutine connects, performs the
// handshake, flushes queued commands, reads frames and routes them either to
// the reply channel or to the event registry. Any transport failure throws
// the connection away and the loop starts over with backoff.
type manager struct {
	clientID uint64
	cfg      config
	dialer   Dialer
	registry *Registry
	status   *Status
	log      zerolog.Logger

	outbound chan ipc.Message
	inbound  chan ipc.Message

	mu   sync.Mutex
	conn *ipc.Conn

	runMu   sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	// set while handlers run on the loop goroutine
	dispatching atomic.Bool

	// loop goroutine only
	lastInbound time.Time
	rng         *rand.Rand
}

func newManager(clientID uint64, registry *Registry, status *Status, cfg config) *manager {
	return &manager{
		clientID: clientID,
		cfg:      cfg,
		dialer:   cfg.dialer,
		registry: registry,
		status:   status,
		log:      cfg.logger.With().Str("component", "manager").Logger(),
		outbound: make(chan ipc.Message, defaultQueueSize),
		inbound:  make(chan ipc.Message, defaultQueueSize),
		done:     make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *manager) start() error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.stopped {
		return ErrClosed
	}
	if m.running {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.status.started.Store(true)
	go m.run(ctx)
	return nil
}

// stop asks the loop to exit and waits for it. Safe to call more than once.
// Called from a handler, it cannot wait for the goroutine it is running on,
// so it only cancels; done closes once the handler returns.
func (m *manager) stop() {
	m.runMu.Lock()
	if m.stopped {
		m.runMu.Unlock()
		if !m.dispatching.Load() {
			<-m.done
		}
		return
	}
	cancel, wasRunning := m.cancel, m.running
	m.cancel = nil
	m.running = false
	m.stopped = true
	m.runMu.Unlock()

	if !wasRunning {
		close(m.done)
		return
	}
	cancel()
	if m.dispatching.Load() {
		return
	}
	<-m.done
}

// dispatch runs the handlers for event on the loop goroutine.
func (m *manager) dispatch(event Event, data json.RawMessage) int {
	m.dispatching.Store(true)
	defer m.dispatching.Store(false)
	return m.registry.Handle(event, data)
}

func (m *manager) run(ctx context.Context) {
	defer close(m.done)
	defer m.shutdown()

	m.log.Debug().Uint64("client_id", m.clientID).Msg("starting connection loop")
	attempt := 0
	for ctx.Err() == nil {
		conn := m.connection()
		if conn == nil {
			err := m.connect(ctx)
			if err == nil {
				attempt = 0
				continue
			}
			if ctx.Err() != nil {
				return
			}
			attempt++
			m.logConnectError(err, attempt)
			if !sleepCtx(ctx, nextBackoffDelay(m.cfg.backoff, attempt, m.rng)) {
				return
			}
			continue
		}

		if err := m.sendAndReceive(ctx, conn); err != nil && ctx.Err() == nil {
			m.disconnect(err)
		}
	}
}

func (m *manager) logConnectError(err error, attempt int) {
	if ipc.IsRefused(err) {
		m.log.Debug().Err(err).Int("attempt", attempt).Msg("discord not running, retrying")
		return
	}
	m.log.Warn().Err(err).Int("attempt", attempt).Msg("failed to connect")
}

func (m *manager) connect(ctx context.Context) error {
	m.status.setState(Connecting)

	hctx, cancel := context.WithTimeout(ctx, m.cfg.handshakeTimeout)
	defer cancel()

	t, err := m.dialer.Dial(hctx)
	if err != nil {
		m.status.setState(Disconnected)
		return err
	}
	conn := ipc.NewConn(t, m.cfg.logger)
	conn.WriteTimeout = m.cfg.writeTimeout

	m.status.setState(Handshaking)
	m.log.Debug().Msg("performing handshake")
	data, err := m.handshake(hctx, conn)
	if err != nil {
		_ = conn.Close()
		m.status.setState(Disconnected)
		return fmt.Errorf("handshake: %w", err)
	}

	m.dropQueued()
	m.setConnection(conn)
	m.lastInbound = time.Now()
	m.status.setState(Connected)
	m.log.Info().Msg("connected to discord")

	m.dispatch(EventReady, data)
	return nil
}

// handshake runs the handshake and insists on a READY dispatch back.
func (m *manager) handshake(ctx context.Context, conn *ipc.Conn) (json.RawMessage, error) {
	reply, err := conn.Handshake(ctx, m.clientID)
	if err != nil {
		return nil, err
	}
	switch reply.Opcode {
	case ipc.OpFrame:
	case ipc.OpClose:
		return nil, fmt.Errorf("%w: discord closed the connection: %s", ErrUnexpectedReply, reply.Payload)
	default:
		return nil, fmt.Errorf("%w: opcode %s", ErrUnexpectedReply, reply.Opcode)
	}

	var p rawPayload
	if err := json.Unmarshal([]byte(reply.Payload), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if p.Evt == nil || *p.Evt != EventReady {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Payload)
	}
	if p.Data == nil {
		return nil, fmt.Errorf("%w: READY data", ErrMissingField)
	}
	return *p.Data, nil
}

func (m *manager) sendAndReceive(ctx context.Context, conn *ipc.Conn) error {
flush:
	for {
		select {
		case msg := <-m.outbound:
			if err := conn.Send(msg); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		default:
			break flush
		}
	}

	msg, err := conn.TryRecv(m.cfg.pollInterval)
	if ipc.IsWouldBlock(err) {
		return m.keepAlive(ctx, conn)
	}
	if err != nil {
		return err
	}
	m.lastInbound = time.Now()
	return m.route(conn, msg)
}

func (m *manager) route(conn *ipc.Conn, msg ipc.Message) error {
	switch msg.Opcode {
	case ipc.OpFrame:
	case ipc.OpPing:
		return conn.Send(ipc.Message{Opcode: ipc.OpPong, Payload: msg.Payload})
	case ipc.OpPong:
		return nil
	case ipc.OpClose:
		return fmt.Errorf("%w: %s", ipc.ErrConnectionClosed, msg.Payload)
	default:
		m.log.Debug().Stringer("op", msg.Opcode).Msg("ignoring unexpected frame")
		return nil
	}

	var p rawPayload
	if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
		m.log.Warn().Err(err).Msg("failed to decode payload")
		return nil
	}
	if p.IsDispatch() {
		var data json.RawMessage
		if p.Data != nil {
			data = *p.Data
		}
		if !p.Evt.Valid() {
			m.log.Debug().Str("event", string(*p.Evt)).Msg("dispatch for unknown event")
		}
		if n := m.dispatch(*p.Evt, data); n == 0 {
			m.log.Debug().Str("event", string(*p.Evt)).Msg("no handlers for event")
		}
		return nil
	}

	select {
	case m.inbound <- msg:
	default:
		m.log.Warn().Str("cmd", string(p.Cmd)).Msg("reply queue full, dropping reply")
	}
	return nil
}

func (m *manager) keepAlive(ctx context.Context, conn *ipc.Conn) error {
	if m.cfg.keepAlive <= 0 || time.Since(m.lastInbound) < m.cfg.keepAlive {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, m.cfg.replyTimeout)
	defer cancel()

	op, err := conn.Ping(pctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("keepalive: %w", err)
	}
	m.lastInbound = time.Now()
	if op != ipc.OpPong {
		m.log.Debug().Stringer("op", op).Msg("keepalive answered with a non-pong frame")
	}
	return nil
}

func (m *manager) disconnect(cause error) {
	if errors.Is(cause, ipc.ErrConnectionClosed) {
		m.log.Info().Err(cause).Msg("discord closed the connection")
	} else {
		m.log.Warn().Err(cause).Msg("connection lost")
	}
	m.closeConnection()
	m.status.setState(Disconnected)
	if n := m.dropQueued(); n > 0 {
		m.log.Debug().Int("dropped", n).Msg("discarded queued messages")
	}
}

func (m *manager) shutdown() {
	m.closeConnection()
	m.status.setState(Disconnected)
	m.status.started.Store(false)
	m.dropQueued()
	m.log.Debug().Msg("connection loop stopped")
}

func (m *manager) connection() *ipc.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

func (m *manager) setConnection(conn *ipc.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

func (m *manager) closeConnection() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// dropQueued empties both queues. Messages are never replayed on a new
// connection.
func (m *manager) dropQueued() int {
	return drain(m.outbound) + drain(m.inbound)
}

func (m *manager) send(ctx context.Context, msg ipc.Message) error {
	select {
	case m.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrClosed
	}
}

func (m *manager) recv(ctx context.Context, timeout time.Duration) (ipc.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-m.inbound:
		return msg, nil
	case <-timer.C:
		return ipc.Message{}, ErrTimeout
	case <-ctx.Done():
		return ipc.Message{}, ctx.Err()
	case <-m.done:
		return ipc.Message{}, ErrClosed
	}
}

// dropStaleReplies discards replies nobody waited for, e.g. one that arrived
// after its caller timed out.
func (m *manager) dropStaleReplies() int {
	return drain(m.inbound)
}

func drain(ch chan ipc.Message) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		default:
			return n
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
