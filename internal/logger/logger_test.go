package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battle.log")
	log, err := New(Config{Level: "debug", OutputPath: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Debug("boss defeated", zap.String("boss_id", "boss-1"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"boss defeated"`) || !strings.Contains(line, `"boss_id":"boss-1"`) {
		t.Fatalf("unexpected log line %q", line)
	}
	if !strings.Contains(line, `"level":"DEBUG"`) || !strings.Contains(line, `"timestamp"`) {
		t.Fatalf("expected level and timestamp keys, got %q", line)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battle.log")
	log, err := New(Config{Level: "loud", Encoding: "xml", OutputPath: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if log.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("debug must be disabled at the fallback level")
	}
	if !log.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info must be enabled at the fallback level")
	}
}
