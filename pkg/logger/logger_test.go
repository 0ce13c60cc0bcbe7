package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProductionModeWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOptions(Options{Mode: "production", Output: &buf})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}

	log.With("service", "MoodLedger").Info("mood recorded", "patient_id", "p-1")
	log.Sync()

	line := strings.TrimSpace(buf.String())
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("Expected a JSON log line, got %q: %v", line, err)
	}
	if decoded["msg"] != "mood recorded" {
		t.Errorf("Expected msg 'mood recorded', got %v", decoded["msg"])
	}
	if decoded["service"] != "MoodLedger" || decoded["patient_id"] != "p-1" {
		t.Errorf("Expected structured fields to be present, got %v", decoded)
	}
}

func TestProductionModeDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOptions(Options{Mode: "production", Output: &buf})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}
	log.Debug("noisy")
	log.Sync()
	if buf.Len() != 0 {
		t.Errorf("Expected debug line to be dropped in production mode, got %q", buf.String())
	}
}

func TestFileSinkReceivesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodledger.log")
	var console bytes.Buffer
	log, err := NewWithOptions(Options{Mode: "development", File: path, Output: &console})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}
	log.Info("to file")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("Expected log file to contain the message, got %q", string(data))
	}
	if !strings.Contains(console.String(), "to file") {
		t.Errorf("Expected console output to contain the message, got %q", console.String())
	}
}
