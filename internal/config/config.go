package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ffx64/discord-rpc-go/client"
	"github.com/rs/zerolog"
)

const (
	EnvClientID = "DISCORD_CLIENT_ID"
	EnvPort     = "DISCORD_PORT"
	EnvLogLevel = "DISCORD_RPC_LOG_LEVEL"
)

var ErrMissingClientID = errors.New("config: client_id is required")

type Config struct {
	ClientID         uint64
	WebSocketPort    int
	DisableWebSocket bool
	ReplyTimeout     time.Duration
	HandshakeTimeout time.Duration
	PollInterval     time.Duration
	KeepAlive        time.Duration
	LogLevel         string
	Presence         Presence
}

// Presence is the activity the CLI publishes.
type Presence struct {
	Type       string
	State      string
	Details    string
	LargeImage string
	LargeText  string
	SmallImage string
	SmallText  string
	StartNow   bool
	Buttons    []client.Button
}

func DefaultConfig() Config {
	return Config{
		ReplyTimeout:     client.DefaultReplyTimeout,
		HandshakeTimeout: client.DefaultHandshakeTimeout,
		PollInterval:     client.DefaultPollInterval,
		KeepAlive:        client.DefaultKeepAlive,
		LogLevel:         "info",
	}
}

type fileConfig struct {
	ClientID         string       `toml:"client_id"`
	WebSocketPort    int          `toml:"websocket_port"`
	DisableWebSocket bool         `toml:"disable_websocket"`
	ReplyTimeout     string       `toml:"reply_timeout"`
	HandshakeTimeout string       `toml:"handshake_timeout"`
	PollInterval     string       `toml:"poll_interval"`
	KeepAlive        string       `toml:"keepalive"`
	LogLevel         string       `toml:"log_level"`
	Activity         fileActivity `toml:"activity"`
}

type fileActivity struct {
	Type       string       `toml:"type"`
	State      string       `toml:"state"`
	Details    string       `toml:"details"`
	LargeImage string       `toml:"large_image"`
	LargeText  string       `toml:"large_text"`
	SmallImage string       `toml:"small_image"`
	SmallText  string       `toml:"small_text"`
	StartNow   bool         `toml:"start_now"`
	Buttons    []fileButton `toml:"buttons"`
}

type fileButton struct {
	Label string `toml:"label"`
	URL   string `toml:"url"`
}

// Load reads path on top of DefaultConfig and then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("client_id") {
		id, err := ParseClientID(raw.ClientID)
		if err != nil {
			return err
		}
		c.ClientID = id
	}
	if meta.IsDefined("websocket_port") {
		c.WebSocketPort = raw.WebSocketPort
	}
	if meta.IsDefined("disable_websocket") {
		c.DisableWebSocket = raw.DisableWebSocket
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"reply_timeout", raw.ReplyTimeout, &c.ReplyTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, &c.HandshakeTimeout},
		{"poll_interval", raw.PollInterval, &c.PollInterval},
		{"keepalive", raw.KeepAlive, &c.KeepAlive},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("log_level") {
		c.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("activity") {
		c.Presence = raw.Activity.presence()
	}
	return nil
}

func (a fileActivity) presence() Presence {
	p := Presence{
		Type:       strings.TrimSpace(a.Type),
		State:      a.State,
		Details:    a.Details,
		LargeImage: a.LargeImage,
		LargeText:  a.LargeText,
		SmallImage: a.SmallImage,
		SmallText:  a.SmallText,
		StartNow:   a.StartNow,
	}
	for _, b := range a.Buttons {
		p.Buttons = append(p.Buttons, client.Button{Label: b.Label, Url: b.URL})
	}
	return p
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvClientID)); v != "" {
		id, err := ParseClientID(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvClientID, err)
		}
		c.ClientID = id
	}
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.WebSocketPort = port
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	return nil
}

// ParseClientID parses a Discord application id, a decimal snowflake.
func ParseClientID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingClientID
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid client_id %q: %w", s, err)
	}
	return id, nil
}

func (c Config) Validate() error {
	if c.ClientID == 0 {
		return ErrMissingClientID
	}
	if c.WebSocketPort < 0 || c.WebSocketPort > 65535 {
		return fmt.Errorf("config: websocket_port %d out of range", c.WebSocketPort)
	}
	if c.ReplyTimeout <= 0 || c.HandshakeTimeout <= 0 || c.PollInterval <= 0 {
		return errors.New("config: timeouts and poll_interval must be positive")
	}
	if c.KeepAlive < 0 {
		return errors.New("config: keepalive must not be negative")
	}
	if _, err := activityType(c.Presence.Type); err != nil {
		return err
	}
	return nil
}

// ClientOptions maps the configuration onto client options.
func (c Config) ClientOptions(logger zerolog.Logger) []client.Option {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithReplyTimeout(c.ReplyTimeout),
		client.WithHandshakeTimeout(c.HandshakeTimeout),
		client.WithPollInterval(c.PollInterval),
		client.WithKeepAlive(c.KeepAlive),
	}
	if c.WebSocketPort > 0 {
		opts = append(opts, client.WithWebSocketPort(c.WebSocketPort))
	}
	if c.DisableWebSocket {
		opts = append(opts, client.WithoutWebSocket())
	}
	return opts
}

// Activity builds the presence to publish. now stamps the start time when
// start_now is set.
func (c Config) Activity(now time.Time) client.Activity {
	p := c.Presence
	typ, _ := activityType(p.Type)
	act := client.Activity{
		Type:    typ,
		State:   p.State,
		Details: p.Details,
		Buttons: p.Buttons,
	}
	if p.LargeImage != "" || p.LargeText != "" || p.SmallImage != "" || p.SmallText != "" {
		act.Assets = &client.Assets{
			LargeImage: p.LargeImage,
			LargeText:  p.LargeText,
			SmallImage: p.SmallImage,
			SmallText:  p.SmallText,
		}
	}
	if p.StartNow {
		act.Timestamps = &client.Timestamps{Start: now.Unix()}
	}
	return act
}

func activityType(s string) (client.ActivityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "playing":
		return client.Playing, nil
	case "listening":
		return client.Listening, nil
	case "watching":
		return client.Watching, nil
	case "competing":
		return client.Competing, nil
	default:
		return client.Playing, fmt.Errorf("config: unknown activity type %q", s)
	}
}
