// Package client is a Discord rich presence client. A background manager
// keeps the local RPC connection alive and routes server dispatches to
// registered handlers.
package client

import (
	"context"
	"sync"

	"github.com/ffx64/discord-rpc-go/transport/ipc"
	"github.com/rs/zerolog"
)

// Client talks to the Discord desktop client over its local RPC socket.
//
// Start launches the connection goroutine; commands fail with ErrNotStarted
// until the handshake has completed. Commands are issued one at a time:
// Discord's replies are matched to requests purely by arrival order.
type Client struct {
	ClientID uint64

	cfg      config
	log      zerolog.Logger
	registry *Registry
	status   *Status
	manager  *manager
	limiter  *rateLimiter

	callMu sync.Mutex
}

func NewClient(clientID uint64, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.status == nil {
		cfg.status = NewStatus()
	}
	if cfg.dialer == nil {
		cfg.dialer = ipc.Dialer{
			ClientID:         clientID,
			WebSocketPort:    cfg.webSocketPort,
			DisableWebSocket: cfg.disableWebSocket,
			Timeout:          cfg.dialTimeout,
			Logger:           cfg.logger,
		}
	}

	registry := NewRegistry(cfg.logger)
	return &Client{
		ClientID: clientID,
		cfg:      cfg,
		log:      cfg.logger.With().Str("component", "client").Logger(),
		registry: registry,
		status:   cfg.status,
		manager:  newManager(clientID, registry, cfg.status, cfg),
		limiter:  newRateLimiter(cfg.rateLimit, cfg.rateWindow, cfg.now),
	}
}

// Start launches the background connection loop. It returns immediately;
// use OnReady or BlockUntilEvent(ctx, EventReady) to wait for the handshake.
func (c *Client) Start() error {
	return c.manager.start()
}

// Close stops the connection loop, closes the transport and waits for the
// goroutine to exit. A closed client cannot be restarted. Called from an
// event handler, Close returns without waiting; use Done to observe the exit.
func (c *Client) Close() error {
	c.manager.stop()
	return nil
}

// Done is closed once the connection loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.manager.done
}

func (c *Client) IsStarted() bool { return c.status.Started() }

// IsReady reports whether commands can be issued right now.
func (c *Client) IsReady() bool { return c.status.Ready() }

func (c *Client) State() ConnectionState { return c.status.State() }

func (c *Client) Status() *Status { return c.status }

func (c *Client) Registry() *Registry { return c.registry }

// OnEvent registers h for evt. Handlers run on the connection goroutine, so
// a handler that issues a command must do it from a new goroutine.
func (c *Client) OnEvent(evt Event, h Handler) *Handle {
	return c.registry.Register(evt, h)
}

func (c *Client) OnReady(h Handler) *Handle { return c.OnEvent(EventReady, h) }

func (c *Client) OnError(h Handler) *Handle { return c.OnEvent(EventError, h) }

func (c *Client) OnActivityJoin(h Handler) *Handle { return c.OnEvent(EventActivityJoin, h) }

func (c *Client) OnActivitySpectate(h Handler) *Handle { return c.OnEvent(EventActivitySpectate, h) }

func (c *Client) OnActivityJoinRequest(h Handler) *Handle {
	return c.OnEvent(EventActivityJoinRequest, h)
}

// BlockUntilEvent waits for the next evt and returns its context.
func (c *Client) BlockUntilEvent(ctx context.Context, evt Event) (Context, error) {
	return c.registry.BlockUntilEvent(ctx, evt)
}
