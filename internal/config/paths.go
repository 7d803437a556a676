package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppDirName is the directory segment every config/data file lives under,
// matching the original Tauri app's naming exactly (spec.md §6).
const AppDirName = "ladder-legends-uploader"

// Dir returns the platform config directory for the agent:
// ~/.config/ladder-legends-uploader (Linux), ~/Library/Application
// Support/ladder-legends-uploader (macOS), or
// %AppData%/ladder-legends-uploader (Windows) - os.UserConfigDir resolves
// the platform-specific root the same way dirs::config_dir() does in
// config_utils.rs.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve config directory: %w", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// EnsureDir creates Dir() if it does not already exist and returns it.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: create config directory: %w", err)
	}
	return dir, nil
}

// LogsDir returns ~/.ladder-legends-uploader/logs, matching
// config_utils.rs's get_logs_dir exactly (a dotfile under the home
// directory, deliberately distinct from Dir()'s platform config root).
func LogsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, "."+AppDirName, "logs"), nil
}
