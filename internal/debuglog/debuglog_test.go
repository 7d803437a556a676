package debuglog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ladderlegends/sc2-uploader-agent/internal/logging"
)

func TestLoggerRecordsSinkEntriesAndCountsErrors(t *testing.T) {
	dl := New("test-version")
	defer logging.SetSink(nil)

	log := logging.NewTestLogger()
	log.Info("starting scan", logging.Int("limit", 50))
	log.Error("upload failed", logging.String("filename", "a.SC2Replay"))

	if dl.ErrorCount() != 1 {
		t.Fatalf("ErrorCount() = %d, want 1", dl.ErrorCount())
	}

	report := dl.GenerateReport("/replays", 3)
	if len(report.LogEntries) != 2 {
		t.Fatalf("LogEntries = %d, want 2", len(report.LogEntries))
	}
	if report.AppVersion != "test-version" {
		t.Fatalf("AppVersion = %q", report.AppVersion)
	}
	if report.ErrorCount != 1 {
		t.Fatalf("ErrorCount = %d, want 1", report.ErrorCount)
	}
}

func TestLoggerEvictsOldestEntriesPastCapacity(t *testing.T) {
	dl := New("test-version")
	defer logging.SetSink(nil)

	log := logging.NewTestLogger()
	for i := 0; i < maxEntries+10; i++ {
		log.Info("tick")
	}

	report := dl.GenerateReport("", 0)
	if len(report.LogEntries) != maxEntries {
		t.Fatalf("LogEntries = %d, want %d", len(report.LogEntries), maxEntries)
	}
}

func TestSaveReportToFileWritesTimestampedJSON(t *testing.T) {
	dl := New("test-version")
	defer logging.SetSink(nil)

	dir := t.TempDir()
	path, err := dl.SaveReportToFile(dir, "/replays", 1)
	if err != nil {
		t.Fatalf("SaveReportToFile() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report written outside logsDir: %s", path)
	}
}

func TestSweepRemovesReportsBeyondMaxReports(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "debug_log_"+string(rune('a'+i))+".json")
		if err := os.WriteFile(name, []byte("{}"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		mtime := now.Add(-time.Duration(i) * time.Minute)
		if err := os.Chtimes(name, mtime, mtime); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}
	}

	Sweep(dir, RetentionPolicy{MaxReports: 2}, nil)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("remaining reports = %d, want 2", len(entries))
	}
}

func TestSweepRemovesExpiredReports(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "debug_log_old.json")
	if err := os.WriteFile(name, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(name, old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	Sweep(dir, RetentionPolicy{MaxAge: 24 * time.Hour}, nil)

	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Fatalf("expired report still present: err = %v", err)
	}
}
