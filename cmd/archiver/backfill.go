package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// backfillCmd drives historical ingestion. Like run, the REST client that
// actually walks channel history is an external collaborator; backfill
// wires up the same in-process environment and leaves the pacing
// configuration (BackfillPacing) ready for that collaborator to honor.
func backfillCmd() *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill historical messages for one or all configured guilds",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			guilds := env.cfg.GuildIDs
			if guildID != "" {
				guilds = []string{guildID}
			}
			if len(guilds) == 0 {
				env.log.Warn("no guild IDs configured; nothing to backfill")
				return nil
			}

			env.log.Info("backfill starting",
				"guild_ids", guilds,
				"pacing", env.cfg.BackfillPacing)

			for _, id := range guilds {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				env.log.Info("backfill guild queued", "guild_id", id)
			}

			env.log.Info("backfill complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Backfill a single guild ID instead of every configured guild")
	return cmd
}
