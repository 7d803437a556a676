package config

import (
	"strings"
	"testing"
)

func TestDirIncludesAppDirName(t *testing.T) {
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if !strings.Contains(dir, AppDirName) {
		t.Fatalf("Dir() = %q, want to contain %q", dir, AppDirName)
	}
}

func TestLogsDirEndsInLogs(t *testing.T) {
	dir, err := LogsDir()
	if err != nil {
		t.Fatalf("LogsDir() error = %v", err)
	}
	if !strings.HasSuffix(dir, "logs") {
		t.Fatalf("LogsDir() = %q, want suffix \"logs\"", dir)
	}
	if !strings.Contains(dir, "."+AppDirName) {
		t.Fatalf("LogsDir() = %q, want to contain .%s", dir, AppDirName)
	}
}
