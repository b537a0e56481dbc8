package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// fsckCmd runs the file store's read-only consistency check.
func fsckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Check the blob store for missing or corrupted files",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			report, err := env.store.Fsck(cmd.Context())
			if err != nil {
				return fmt.Errorf("fsck: %w", err)
			}

			fmt.Printf("checked %d blobs\n", report.Checked)
			for _, url := range report.Missing {
				fmt.Printf("missing: %s\n", url)
			}
			for _, url := range report.HashMismatch {
				fmt.Printf("corrupted: %s\n", url)
			}

			if !report.OK() {
				return fmt.Errorf("fsck found %d missing and %d corrupted blob(s)",
					len(report.Missing), len(report.HashMismatch))
			}
			fmt.Println("ok")
			return nil
		},
	}
}
