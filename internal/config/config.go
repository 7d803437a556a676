package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPIBaseURL is used when neither the runtime nor compile-time
	// environment variable overrides the API host.
	DefaultAPIBaseURL = "https://www.ladderlegendsacademy.com"

	// APIHostEnvVar is the runtime override for the API base URL, matching
	// the original Tauri app's environment variable name exactly so
	// deployments do not need to change their launch scripts.
	APIHostEnvVar = "LADDER_LEGENDS_API_HOST"

	// DefaultScanLimit bounds how many new replays a single scan uploads.
	DefaultScanLimit = 50

	// DefaultPollInterval is the recursive folder rescan cadence (C5 task 3).
	DefaultPollInterval = 120 * time.Second
	// DefaultHeartbeatInterval is how often watcher liveness is checked (C5 task 2).
	DefaultHeartbeatInterval = 60 * time.Second
	// DefaultHeartbeatTimeout is the elapsed-since-last-event threshold that
	// triggers a recovery poll.
	DefaultHeartbeatTimeout = 300 * time.Second
	// DefaultSettleDelayWindows is the Windows file-settle delay.
	DefaultSettleDelayWindows = 1000 * time.Millisecond
	// DefaultSettleDelayOther is the non-Windows file-settle delay.
	DefaultSettleDelayOther = 500 * time.Millisecond
	// DefaultPollRecentWindowSlack is the extra slack added to the poll
	// interval when deciding whether a polled file is "recent enough" to report.
	DefaultPollRecentWindowSlack = 30 * time.Second

	// DefaultLogLevel controls verbosity for agent logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "agent.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 50
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 5
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 14
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// DefaultEventBusAddr is the loopback address the event bridge listens on.
	DefaultEventBusAddr = "127.0.0.1:43271"
)

// Config captures all runtime tunables for the uploader agent.
type Config struct {
	APIBaseURL string

	ReplayFolders    []string
	AutostartEnabled bool

	ScanLimit int

	PollInterval             time.Duration
	HeartbeatInterval        time.Duration
	HeartbeatTimeout         time.Duration
	SettleDelayWindows       time.Duration
	SettleDelayOther         time.Duration
	PollRecentWindowSlack    time.Duration
	WatcherChannelBufferSize int

	EventBusAddr string

	Logging LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the agent configuration from environment variables, applying
// sane defaults and returning descriptive errors for invalid overrides.
// Persisted user preferences (replay_folders, autostart_enabled) are not
// read here - Store.Load reads them from config.json and returns them as a
// separate Preferences value.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:               resolveAPIBaseURL(),
		ScanLimit:                DefaultScanLimit,
		PollInterval:             DefaultPollInterval,
		HeartbeatInterval:        DefaultHeartbeatInterval,
		HeartbeatTimeout:         DefaultHeartbeatTimeout,
		SettleDelayWindows:       DefaultSettleDelayWindows,
		SettleDelayOther:         DefaultSettleDelayOther,
		PollRecentWindowSlack:    DefaultPollRecentWindowSlack,
		WatcherChannelBufferSize: 100,
		EventBusAddr:             getString("AGENT_EVENTBUS_ADDR", DefaultEventBusAddr),
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("AGENT_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("AGENT_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("AGENT_SCAN_LIMIT")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("AGENT_SCAN_LIMIT must be a positive integer, got %q", raw))
		} else {
			cfg.ScanLimit = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("AGENT_POLL_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("AGENT_POLL_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.PollInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("AGENT_HEARTBEAT_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("AGENT_HEARTBEAT_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.HeartbeatInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("AGENT_HEARTBEAT_TIMEOUT")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("AGENT_HEARTBEAT_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.HeartbeatTimeout = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("AGENT_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("AGENT_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("AGENT_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("AGENT_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("AGENT_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("AGENT_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("AGENT_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("AGENT_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf(strings.Join(problems, "; "))
	}

	return cfg, nil
}

// resolveAPIBaseURL implements spec.md's priority: runtime env var > compile
// time default (none baked into this build) > production URL.
func resolveAPIBaseURL() string {
	if value := strings.TrimSpace(os.Getenv(APIHostEnvVar)); value != "" {
		return value
	}
	return DefaultAPIBaseURL
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
