package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ladderlegends/sc2-uploader-agent/internal/apiclient"
	"github.com/ladderlegends/sc2-uploader-agent/internal/config"
	"github.com/ladderlegends/sc2-uploader-agent/internal/debuglog"
)

func newDebugLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug-log",
		Short: "Export a diagnostic report covering recent log activity and system info",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}

			// A fresh debuglog.Logger only captures entries emitted after
			// New() installs the sink, so a cold `agent debug-log` run
			// mostly reports SystemInfo plus whatever this invocation itself
			// logs. Each agent subcommand runs in its own process and
			// `agent watch` installs no debuglog sink, so entries logged by
			// a running watcher never appear in this report.
			dl := debuglog.New(apiclient.Version)

			logsDir, err := config.LogsDir()
			if err != nil {
				return fmt.Errorf("resolve logs dir: %w", err)
			}

			replayFolder := ""
			if len(rt.prefs.ReplayFolders) > 0 {
				replayFolder = rt.prefs.ReplayFolders[0]
			}

			path, err := dl.SaveReportToFile(logsDir, replayFolder, rt.tracker.TotalUploaded())
			if err != nil {
				return fmt.Errorf("save debug report: %w", err)
			}

			fmt.Println(path)
			return nil
		},
	}
	return cmd
}
