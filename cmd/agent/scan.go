package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan configured replay folders and upload anything new",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}

			if len(rt.prefs.ReplayFolders) == 0 {
				return fmt.Errorf("no replay folders configured; run `agent folders add <path>` first")
			}

			if limit <= 0 {
				limit = rt.cfg.ScanLimit
			}

			ctx := context.Background()

			uploaded, err := rt.manager.ScanAndUpload(ctx, limit)
			if err != nil {
				return fmt.Errorf("scan and upload: %w", err)
			}

			fmt.Printf("uploaded %d replay(s)\n", uploaded)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of replays to upload (defaults to config scan limit)")
	return cmd
}
