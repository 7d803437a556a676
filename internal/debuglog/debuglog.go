// Package debuglog implements the debug-log ring buffer and system-snapshot
// export a support request attaches: the last 1000 structured log entries
// plus a point-in-time process/runtime snapshot, written as one JSON report.
//
// Grounded on _examples/original_source/src-tauri/src/debug_logger.rs for
// the DebugLogEntry/SystemInfo/DebugReport shapes, the 1000-entry eviction
// policy, and the debug_log_<timestamp>.json naming convention. The
// retention sweep for old report files is adapted from the teacher's
// internal/replay retention cleaner (same collect/shouldRemove/remove shape,
// narrowed to a flat directory of JSON files instead of match directories).
package debuglog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
)

const maxEntries = 1000

// Entry is one captured log line, independent of the logger's own level
// filter - debuglog installs a logging.SetSink hook that receives every
// line regardless of what the file logger's configured level drops.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
}

// SystemInfo is a snapshot of the host and process at report time. Disk
// enumeration (the original's Disks/DiskInfo) is omitted: no system-info
// library in the example corpus exposes it, and faking disk usage from
// stdlib alone would be worse than not reporting it (see DESIGN.md).
type SystemInfo struct {
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	GoVersion       string `json:"go_version"`
	Hostname        string `json:"hostname,omitempty"`
	CPUCount        int    `json:"cpu_count"`
	NumGoroutine    int    `json:"num_goroutine"`
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
}

// Report is the full exported document.
type Report struct {
	GeneratedAt  string     `json:"generated_at"`
	AppVersion   string     `json:"app_version"`
	SystemInfo   SystemInfo `json:"system_info"`
	ReplayFolder string     `json:"replay_folder,omitempty"`
	ReplaysFound int        `json:"replays_found,omitempty"`
	ErrorCount   int        `json:"error_count"`
	LogEntries   []Entry    `json:"log_entries"`
}

// Logger is a ring buffer of the most recent log entries, fed by
// logging.SetSink. Only one should be installed per process.
type Logger struct {
	appVersion string

	mu         sync.Mutex
	entries    []Entry
	errorCount int
}

// New constructs a Logger and installs it as the package-level logging
// sink. appVersion is embedded verbatim in every exported report.
func New(appVersion string) *Logger {
	l := &Logger{appVersion: appVersion}
	logging.SetSink(l.record)
	return l
}

func (l *Logger) record(level logging.Level, message string, fields map[string]any) {
	entry := Entry{
		Level:   level.String(),
		Message: message,
	}
	if ts, ok := fields["timestamp"].(string); ok {
		entry.Timestamp = ts
	}
	if len(fields) > 0 {
		context := make(map[string]any, len(fields))
		for k, v := range fields {
			if k == "timestamp" || k == "level" || k == "message" {
				continue
			}
			context[k] = v
		}
		if len(context) > 0 {
			entry.Context = context
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if level == logging.ErrorLevel || level == logging.FatalLevel {
		l.errorCount++
	}
	if len(l.entries) >= maxEntries {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
}

// ErrorCount returns the number of error/fatal entries seen since New.
func (l *Logger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorCount
}

// GatherSystemInfo captures a process/runtime snapshot using only stdlib
// facts (see SystemInfo's doc comment for why disk/CPU-brand data is
// omitted rather than approximated).
func GatherSystemInfo() SystemInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	hostname, _ := os.Hostname()
	return SystemInfo{
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
		GoVersion:       runtime.Version(),
		Hostname:        hostname,
		CPUCount:        runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
		AllocBytes:      mem.Alloc,
		TotalAllocBytes: mem.TotalAlloc,
		SysBytes:        mem.Sys,
	}
}

// GenerateReport snapshots the current ring buffer into a Report.
func (l *Logger) GenerateReport(replayFolder string, replaysFound int) Report {
	l.mu.Lock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	errorCount := l.errorCount
	l.mu.Unlock()

	return Report{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		AppVersion:   l.appVersion,
		SystemInfo:   GatherSystemInfo(),
		ReplayFolder: replayFolder,
		ReplaysFound: replaysFound,
		ErrorCount:   errorCount,
		LogEntries:   entries,
	}
}

// SaveReportToFile writes GenerateReport's output to
// logsDir/debug_log_<YYYYMMDD_HHMMSS>.json and returns the path written.
func (l *Logger) SaveReportToFile(logsDir, replayFolder string, replaysFound int) (string, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return "", fmt.Errorf("debuglog: create logs dir: %w", err)
	}

	report := l.GenerateReport(replayFolder, replaysFound)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("debuglog: marshal report: %w", err)
	}

	filename := fmt.Sprintf("debug_log_%s.json", time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(logsDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("debuglog: write report: %w", err)
	}
	return path, nil
}

// RetentionPolicy bounds how many exported debug-log reports accumulate on
// disk (teacher's replay-artefact retention cleaner, narrowed to one flat
// directory of JSON reports instead of match directories with companion
// header files).
type RetentionPolicy struct {
	MaxReports int
	MaxAge     time.Duration
}

// Sweep removes debug_log_*.json files in logsDir that exceed policy's
// count or age budget, newest-first.
func Sweep(logsDir string, policy RetentionPolicy, logger *logging.Logger) {
	if logger == nil {
		logger = logging.NewTestLogger()
	}
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return
	}

	type report struct {
		path    string
		modTime time.Time
	}
	var reports []report
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "debug_log_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, report{path: filepath.Join(logsDir, entry.Name()), modTime: info.ModTime()})
	}
	//1.- Sort newest-first so retention limits favour the most recent reports.
	sort.Slice(reports, func(i, j int) bool { return reports[i].modTime.After(reports[j].modTime) })

	now := time.Now()
	for i, r := range reports {
		expired := policy.MaxAge > 0 && now.Sub(r.modTime) > policy.MaxAge
		overCap := policy.MaxReports > 0 && i >= policy.MaxReports
		if !expired && !overCap {
			continue
		}
		//2.- Remove whichever reports fail either budget; removal failures are
		// logged and skipped rather than aborting the sweep.
		if err := os.Remove(r.path); err != nil {
			logger.Warn("debug log retention removal failed",
				logging.String("path", r.path), logging.Error(err))
		}
	}
}
