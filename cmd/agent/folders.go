package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ladderlegends/sc2-uploader-agent/internal/config"
	"github.com/ladderlegends/sc2-uploader-agent/internal/detector"
)

func newFoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Manage configured replay folders",
	}

	cmd.AddCommand(newFoldersListCmd())
	cmd.AddCommand(newFoldersAddCmd())
	cmd.AddCommand(newFoldersRemoveCmd())
	cmd.AddCommand(newFoldersDetectCmd())
	return cmd
}

func newFoldersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured replay folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			if len(rt.prefs.ReplayFolders) == 0 {
				fmt.Println("no replay folders configured")
				return nil
			}
			for _, folder := range rt.prefs.ReplayFolders {
				fmt.Println(folder)
			}
			return nil
		},
	}
}

func newFoldersAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Add a replay folder to the configured set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePreferences(func(prefs *config.Preferences) error {
				path := args[0]
				for _, existing := range prefs.ReplayFolders {
					if existing == path {
						return fmt.Errorf("folder already configured: %s", path)
					}
				}
				prefs.ReplayFolders = append(prefs.ReplayFolders, path)
				return nil
			})
		},
	}
}

func newFoldersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a replay folder from the configured set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePreferences(func(prefs *config.Preferences) error {
				path := args[0]
				kept := prefs.ReplayFolders[:0]
				found := false
				for _, existing := range prefs.ReplayFolders {
					if existing == path {
						found = true
						continue
					}
					kept = append(kept, existing)
				}
				if !found {
					return fmt.Errorf("folder not configured: %s", path)
				}
				prefs.ReplayFolders = kept
				return nil
			})
		},
	}
}

func newFoldersDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Auto-detect StarCraft II replay folders on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := detector.Detect()
			if err != nil {
				return fmt.Errorf("detect folders: %w", err)
			}
			if len(found) == 0 {
				fmt.Println("no replay folders detected")
				return nil
			}
			for _, folder := range found {
				fmt.Printf("%s\t(account %s, region %s)\n", folder.Path, folder.AccountID, detector.RegionLabel(folder.RegionCode))
			}
			return nil
		},
	}
}

// mutatePreferences loads persisted preferences, applies mutate, and saves
// the result - the shared read-modify-write path for every folders
// subcommand that changes config.json.
func mutatePreferences(mutate func(prefs *config.Preferences) error) error {
	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	store := config.NewStore(filepath.Join(dir, "config.json"))

	prefs, err := store.Load()
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	if err := mutate(&prefs); err != nil {
		return err
	}
	if err := store.Save(prefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
