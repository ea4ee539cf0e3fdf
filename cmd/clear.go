package main

import (
	"context"

	"github.com/ffx64/discord-rpc-go/client"
	"github.com/spf13/cobra"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the current activity and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withClient(cmd.Context(), func(runCtx context.Context, cli *client.Client) error {
				if _, err := cli.ClearActivity(runCtx); err != nil {
					return err
				}
				logger.Info().Msg("activity cleared")
				return nil
			})
		},
	}
}
