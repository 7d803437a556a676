package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ladderlegends/sc2-uploader-agent/internal/auth"
	"github.com/ladderlegends/sc2-uploader-agent/internal/eventbus"
	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
)

// loopbackTokenTTL is how long a printed subscriber token stays valid;
// a UI reconnecting after this window needs a fresh `agent watch` run.
const loopbackTokenTTL = 24 * time.Hour

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch configured replay folders and upload new replays as they appear",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}

			if len(rt.prefs.ReplayFolders) == 0 {
				return fmt.Errorf("no replay folders configured; run `agent folders add <path>` first")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			secret, err := auth.GenerateSecret()
			if err != nil {
				return fmt.Errorf("generate loopback secret: %w", err)
			}
			authenticator, err := auth.NewLoopbackTokenAuthenticator(secret, 0)
			if err != nil {
				return fmt.Errorf("init loopback authenticator: %w", err)
			}

			bus := eventbus.New(rt.cfg.EventBusAddr, authenticator, rt.logger)
			if err := bus.Start(ctx); err != nil {
				return fmt.Errorf("start event bridge: %w", err)
			}

			token, err := authenticator.Issue("ui", "ladder-legends-uploader-ui", loopbackTokenTTL)
			if err != nil {
				return fmt.Errorf("issue subscriber token: %w", err)
			}
			fmt.Printf("event bridge listening on %s (subscriber token valid %s)\n", rt.cfg.EventBusAddr, loopbackTokenTTL)
			fmt.Printf("subscriber token: %s\n", token)

			rt.manager = rebuildManagerWithBus(rt, bus)

			if err := rt.manager.StartWatching(ctx, func(path string) {
				bus.Publish("new-replay-detected", map[string]any{"path": path})
				rt.logger.Info("new replay detected, triggering scan", logging.String("path", path))
				if _, err := rt.manager.ScanAndUpload(ctx, rt.cfg.ScanLimit); err != nil {
					rt.logger.Error("scan and upload failed", logging.Error(err))
				}
			}); err != nil {
				return fmt.Errorf("start watching: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			fmt.Println("shutting down")
			cancel()
			return nil
		},
	}
	return cmd
}
