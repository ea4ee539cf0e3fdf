package client

import (
	"context"
	"time"

	"github.com/ffx64/discord-rpc-go/transport/ipc"
	"github.com/rs/zerolog"
)

const (
	DefaultReplyTimeout     = 10 * time.Second
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultPollInterval     = ipc.RetryInterval
	DefaultKeepAlive        = 30 * time.Second
	defaultQueueSize        = 64
)

// Dialer opens a fresh transport to Discord. ipc.Dialer is the production
// implementation; tests substitute in-memory pipes.
type Dialer interface {
	Dial(ctx context.Context) (ipc.Transport, error)
}

type DialerFunc func(ctx context.Context) (ipc.Transport, error)

func (f DialerFunc) Dial(ctx context.Context) (ipc.Transport, error) { return f(ctx) }

type config struct {
	logger           zerolog.Logger
	dialer           Dialer
	status           *Status
	webSocketPort    int
	disableWebSocket bool
	dialTimeout      time.Duration
	replyTimeout     time.Duration
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	pollInterval     time.Duration
	keepAlive        time.Duration
	backoff          BackoffConfig
	rateLimit        int
	rateWindow       time.Duration
	now              func() time.Time
}

func defaultConfig() config {
	return config{
		logger:           zerolog.Nop(),
		dialTimeout:      ipc.DefaultDialTimeout,
		replyTimeout:     DefaultReplyTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		writeTimeout:     ipc.DefaultIOTimeout,
		pollInterval:     DefaultPollInterval,
		keepAlive:        DefaultKeepAlive,
		backoff:          DefaultBackoff(),
		rateLimit:        defaultActivityLimit,
		rateWindow:       defaultActivityWindow,
		now:              time.Now,
	}
}

type Option func(*config)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithDialer replaces the platform transport lookup.
func WithDialer(d Dialer) Option {
	return func(c *config) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithStatus shares a caller-owned Status instead of a private one.
func WithStatus(s *Status) Option {
	return func(c *config) {
		if s != nil {
			c.status = s
		}
	}
}

// WithWebSocketPort pins the websocket fallback to one port.
func WithWebSocketPort(port int) Option {
	return func(c *config) { c.webSocketPort = port }
}

func WithoutWebSocket() Option {
	return func(c *config) { c.disableWebSocket = true }
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithReplyTimeout bounds how long a command waits for Discord's answer.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.replyTimeout = d
		}
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithPollInterval sets how long each manager iteration waits for inbound
// data before flushing the outbound queue again.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithKeepAlive sets the idle time after which the manager pings Discord.
// Zero disables pings.
func WithKeepAlive(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.keepAlive = d
		}
	}
}

func WithBackoff(b BackoffConfig) Option {
	return func(c *config) { c.backoff = b }
}

// WithRateLimit sets how many activity updates are allowed per window.
// A limit of zero disables the limiter.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(c *config) {
		c.rateLimit = limit
		if window > 0 {
			c.rateWindow = window
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}
