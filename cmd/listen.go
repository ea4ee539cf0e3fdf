package main

import (
	"context"

	"github.com/ffx64/discord-rpc-go/client"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var listenEvents = []client.Event{
	client.EventActivityJoin,
	client.EventActivitySpectate,
	client.EventActivityJoinRequest,
}

func newListenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to activity events and log them until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withClient(cmd.Context(), func(runCtx context.Context, cli *client.Client) error {
				for _, evt := range listenEvents {
					h := cli.OnEvent(evt, func(ev client.Context) {
						logger.Info().Str("event", string(ev.Event)).RawJSON("data", rawOrNull(ev.Data)).Msg("event")
					})
					defer h.Unregister()
				}

				if err := subscribeAll(runCtx, cli, logger); err != nil {
					return err
				}
				h := cli.OnReady(func(client.Context) {
					go func() {
						if err := subscribeAll(runCtx, cli, logger); err != nil {
							logger.Warn().Err(err).Msg("failed to resubscribe after reconnect")
						}
					}()
				})
				defer h.Unregister()

				<-runCtx.Done()
				return nil
			})
		},
	}
}

func subscribeAll(ctx context.Context, cli *client.Client, logger zerolog.Logger) error {
	for _, evt := range listenEvents {
		if _, err := cli.Subscribe(ctx, evt, client.SubscriptionArgs{}); err != nil {
			return errorf("subscribe %s: %w", evt, err)
		}
		logger.Debug().Str("event", string(evt)).Msg("subscribed")
	}
	return nil
}

func rawOrNull(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}
