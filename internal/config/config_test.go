package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(APIHostEnvVar, "")
	t.Setenv("AGENT_EVENTBUS_ADDR", "")
	t.Setenv("AGENT_SCAN_LIMIT", "")
	t.Setenv("AGENT_POLL_INTERVAL", "")
	t.Setenv("AGENT_HEARTBEAT_INTERVAL", "")
	t.Setenv("AGENT_HEARTBEAT_TIMEOUT", "")
	t.Setenv("AGENT_LOG_LEVEL", "")
	t.Setenv("AGENT_LOG_PATH", "")
	t.Setenv("AGENT_LOG_MAX_SIZE_MB", "")
	t.Setenv("AGENT_LOG_MAX_BACKUPS", "")
	t.Setenv("AGENT_LOG_MAX_AGE_DAYS", "")
	t.Setenv("AGENT_LOG_COMPRESS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Fatalf("expected default API base URL %q, got %q", DefaultAPIBaseURL, cfg.APIBaseURL)
	}
	if cfg.ScanLimit != DefaultScanLimit {
		t.Fatalf("expected default scan limit %d, got %d", DefaultScanLimit, cfg.ScanLimit)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Fatalf("expected default poll interval %v, got %v", DefaultPollInterval, cfg.PollInterval)
	}
	if cfg.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Fatalf("expected default heartbeat interval %v, got %v", DefaultHeartbeatInterval, cfg.HeartbeatInterval)
	}
	if cfg.HeartbeatTimeout != DefaultHeartbeatTimeout {
		t.Fatalf("expected default heartbeat timeout %v, got %v", DefaultHeartbeatTimeout, cfg.HeartbeatTimeout)
	}
	if cfg.SettleDelayWindows != DefaultSettleDelayWindows || cfg.SettleDelayOther != DefaultSettleDelayOther {
		t.Fatalf("unexpected settle delays windows=%v other=%v", cfg.SettleDelayWindows, cfg.SettleDelayOther)
	}
	if cfg.PollRecentWindowSlack != DefaultPollRecentWindowSlack {
		t.Fatalf("expected default poll slack %v, got %v", DefaultPollRecentWindowSlack, cfg.PollRecentWindowSlack)
	}
	if cfg.WatcherChannelBufferSize != 100 {
		t.Fatalf("expected watcher channel buffer 100, got %d", cfg.WatcherChannelBufferSize)
	}
	if cfg.EventBusAddr != DefaultEventBusAddr {
		t.Fatalf("expected default event bus addr %q, got %q", DefaultEventBusAddr, cfg.EventBusAddr)
	}
	if cfg.ReplayFolders != nil || cfg.AutostartEnabled {
		t.Fatalf("expected no persisted preferences from Load, got folders=%v autostart=%t", cfg.ReplayFolders, cfg.AutostartEnabled)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Path != DefaultLogPath {
		t.Fatalf("expected default log path %q, got %q", DefaultLogPath, cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB {
		t.Fatalf("expected default log max size %d, got %d", DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != DefaultLogMaxBackups {
		t.Fatalf("expected default log max backups %d, got %d", DefaultLogMaxBackups, cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != DefaultLogMaxAgeDays {
		t.Fatalf("expected default log max age %d, got %d", DefaultLogMaxAgeDays, cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress != DefaultLogCompress {
		t.Fatalf("expected default log compress %t, got %t", DefaultLogCompress, cfg.Logging.Compress)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(APIHostEnvVar, "http://localhost:3000")
	t.Setenv("AGENT_EVENTBUS_ADDR", "127.0.0.1:9000")
	t.Setenv("AGENT_SCAN_LIMIT", "12")
	t.Setenv("AGENT_POLL_INTERVAL", "45s")
	t.Setenv("AGENT_HEARTBEAT_INTERVAL", "15s")
	t.Setenv("AGENT_HEARTBEAT_TIMEOUT", "2m")
	t.Setenv("AGENT_LOG_LEVEL", "debug")
	t.Setenv("AGENT_LOG_PATH", "/var/log/agent.log")
	t.Setenv("AGENT_LOG_MAX_SIZE_MB", "512")
	t.Setenv("AGENT_LOG_MAX_BACKUPS", "4")
	t.Setenv("AGENT_LOG_MAX_AGE_DAYS", "2")
	t.Setenv("AGENT_LOG_COMPRESS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:3000" {
		t.Fatalf("unexpected API base URL: %q", cfg.APIBaseURL)
	}
	if cfg.EventBusAddr != "127.0.0.1:9000" {
		t.Fatalf("unexpected event bus address: %q", cfg.EventBusAddr)
	}
	if cfg.ScanLimit != 12 {
		t.Fatalf("expected scan limit 12, got %d", cfg.ScanLimit)
	}
	if cfg.PollInterval.String() != "45s" {
		t.Fatalf("expected poll interval 45s, got %v", cfg.PollInterval)
	}
	if cfg.HeartbeatInterval != 15*time.Second {
		t.Fatalf("expected heartbeat interval 15s, got %v", cfg.HeartbeatInterval)
	}
	if cfg.HeartbeatTimeout != 2*time.Minute {
		t.Fatalf("expected heartbeat timeout 2m, got %v", cfg.HeartbeatTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected overridden log level debug, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Path != "/var/log/agent.log" {
		t.Fatalf("unexpected log path %q", cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != 512 {
		t.Fatalf("expected log max size 512, got %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 4 {
		t.Fatalf("expected log max backups 4, got %d", cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != 2 {
		t.Fatalf("expected log max age 2, got %d", cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress {
		t.Fatalf("expected log compression disabled")
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	t.Setenv("AGENT_SCAN_LIMIT", "-5")
	t.Setenv("AGENT_POLL_INTERVAL", "abc")
	t.Setenv("AGENT_HEARTBEAT_INTERVAL", "0s")
	t.Setenv("AGENT_HEARTBEAT_TIMEOUT", "-1s")
	t.Setenv("AGENT_LOG_MAX_SIZE_MB", "-1")
	t.Setenv("AGENT_LOG_MAX_BACKUPS", "-2")
	t.Setenv("AGENT_LOG_MAX_AGE_DAYS", "-3")
	t.Setenv("AGENT_LOG_COMPRESS", "notabool")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error from invalid configuration, got nil")
	}

	for _, want := range []string{
		"AGENT_SCAN_LIMIT",
		"AGENT_POLL_INTERVAL",
		"AGENT_HEARTBEAT_INTERVAL",
		"AGENT_HEARTBEAT_TIMEOUT",
		"AGENT_LOG_MAX_SIZE_MB",
		"AGENT_LOG_MAX_BACKUPS",
		"AGENT_LOG_MAX_AGE_DAYS",
		"AGENT_LOG_COMPRESS",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %q", want, err.Error())
		}
	}
}

func TestLoadTrimsStringOverrides(t *testing.T) {
	t.Setenv("AGENT_EVENTBUS_ADDR", "   ")
	t.Setenv("AGENT_LOG_LEVEL", "  warn  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.EventBusAddr != DefaultEventBusAddr {
		t.Fatalf("expected blank override to fall back to %q, got %q", DefaultEventBusAddr, cfg.EventBusAddr)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected trimmed log level warn, got %q", cfg.Logging.Level)
	}
}

func TestLoadAppliesScanLimitOverride(t *testing.T) {
	t.Setenv("AGENT_SCAN_LIMIT", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.ScanLimit != 1024 {
		t.Fatalf("expected overridden scan limit, got %d", cfg.ScanLimit)
	}
}

func TestLoadAllowsZeroLogBackups(t *testing.T) {
	t.Setenv("AGENT_LOG_MAX_BACKUPS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Logging.MaxBackups != 0 {
		t.Fatalf("expected zero log backups to be accepted, got %d", cfg.Logging.MaxBackups)
	}
}

func TestLoadWithCustomLogPath(t *testing.T) {
	logFile := createTempFile(t)

	t.Setenv("AGENT_LOG_PATH", logFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Logging.Path != logFile {
		t.Fatalf("unexpected log path %q, want %q", cfg.Logging.Path, logFile)
	}
}

func createTempFile(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "agent-config-test-*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	name := f.Name()
	f.Close()
	t.Cleanup(func() { _ = os.Remove(name) })
	return name
}
