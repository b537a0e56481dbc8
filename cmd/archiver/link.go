package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duarte-pardal/discord-archiver/internal/linker"
)

// linkCmd exports the archive's blobs as human-named hard links.
func linkCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Export archived media as human-named hard links",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			if outDir == "" {
				outDir = env.cfg.DataDir + "-links"
			}

			result, err := linker.Link(cmd.Context(), env.sqlDB, env.store, outDir)
			if err != nil {
				return fmt.Errorf("link: %w", err)
			}

			fmt.Printf("linked %d file(s), skipped %d\n", result.Linked, result.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory for links (default: <data-dir>-links)")
	return cmd
}
