package main

import (
	"context"
	"time"

	"github.com/ffx64/discord-rpc-go/client"
	"github.com/spf13/cobra"
)

func newPresenceCommand(ctx *commandContext) *cobra.Command {
	var state, details string

	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Publish the configured activity until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if state != "" {
				cfg.Presence.State = state
			}
			if details != "" {
				cfg.Presence.Details = details
			}
			act := cfg.Activity(time.Now())
			if act.IsEmpty() {
				return errorf("no activity configured; set [activity] in the config or pass --state")
			}

			return ctx.withClient(cmd.Context(), func(runCtx context.Context, cli *client.Client) error {
				if _, err := cli.SetActivity(runCtx, act); err != nil {
					return err
				}
				logger.Info().Str("state", act.State).Str("details", act.Details).Msg("activity set")

				// Discord forgets the activity when the socket drops.
				h := cli.OnReady(func(client.Context) {
					go func() {
						if _, err := cli.SetActivity(runCtx, act); err != nil {
							logger.Warn().Err(err).Msg("failed to restore activity")
						}
					}()
				})
				defer h.Unregister()

				<-runCtx.Done()

				clearCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if _, err := cli.ClearActivity(clearCtx); err != nil {
					logger.Debug().Err(err).Msg("failed to clear activity on exit")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Override the activity state line")
	cmd.Flags().StringVar(&details, "details", "", "Override the activity details line")
	return cmd
}
