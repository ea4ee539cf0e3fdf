package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ffx64/discord-rpc-go/client"
	"github.com/ffx64/discord-rpc-go/internal/config"
	"github.com/ffx64/discord-rpc-go/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag, clientIDFlag, logLevelFlag string

	ctx := &commandContext{
		configFlag:   &configFlag,
		clientIDFlag: &clientIDFlag,
		logLevelFlag: &logLevelFlag,
	}

	rootCmd := &cobra.Command{
		Use:           "discord-rpc",
		Short:         "Drive Discord rich presence over the local RPC socket",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&clientIDFlag, "client-id", "", "Discord application id (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(newPresenceCommand(ctx))
	rootCmd.AddCommand(newListenCommand(ctx))
	rootCmd.AddCommand(newClearCommand(ctx))

	return rootCmd
}

type commandContext struct {
	configFlag   *string
	clientIDFlag *string
	logLevelFlag *string

	once   sync.Once
	config config.Config
	logger zerolog.Logger
	err    error
}

func (c *commandContext) ensureConfig() (config.Config, zerolog.Logger, error) {
	c.once.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if v := strings.TrimSpace(*c.clientIDFlag); v != "" {
			id, err := config.ParseClientID(v)
			if err != nil {
				c.err = err
				return
			}
			cfg.ClientID = id
		}
		if v := strings.TrimSpace(*c.logLevelFlag); v != "" {
			cfg.LogLevel = v
		}
		if err := cfg.Validate(); err != nil {
			c.err = err
			return
		}
		logger, err := logging.New(os.Stderr, cfg.LogLevel)
		if err != nil {
			c.err = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.logger, c.err
}

// withClient starts a client, waits for the first READY and hands it to fn.
// The client is closed when fn returns.
func (c *commandContext) withClient(ctx context.Context, fn func(context.Context, *client.Client) error) error {
	cfg, logger, err := c.ensureConfig()
	if err != nil {
		return err
	}

	cli := client.NewClient(cfg.ClientID, cfg.ClientOptions(logger)...)
	defer cli.Close()

	cli.OnError(func(ev client.Context) {
		var e client.ErrorEvent
		if err := ev.Decode(&e); err != nil {
			logger.Warn().Err(err).Msg("undecodable ERROR event")
			return
		}
		logger.Error().Int("code", e.Code).Str("message", e.Message).Msg("discord reported an error")
	})

	ready := make(chan client.Context, 1)
	h := cli.OnReady(func(ev client.Context) {
		select {
		case ready <- ev:
		default:
		}
	})

	if err := cli.Start(); err != nil {
		return err
	}
	logger.Info().Uint64("client_id", cfg.ClientID).Msg("waiting for discord")

	select {
	case ev := <-ready:
		h.Unregister()
		var info client.ReadyEvent
		if err := ev.Decode(&info); err == nil {
			logger.Info().Str("user", info.User.Username).Int("v", info.V).Msg("discord ready")
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn(ctx, cli)
}

func errorf(format string, args ...any) error {
	return fmt.Errorf("discord-rpc: "+format, args...)
}
