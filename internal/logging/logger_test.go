package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONWithContext(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "sessions", "main", "logs", "tabroomd.log")

	logger, err := New(logPath, "default", "main")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("tab started")
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(strings.Split(string(data), "\n")[0])

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if entry["msg"] != "tab started" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["profile"] != "default" || entry["session"] != "main" {
		t.Errorf("context fields = %v/%v", entry["profile"], entry["session"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("missing ts field")
	}
}
