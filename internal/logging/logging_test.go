package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shadow-hedger/internal/config"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hedger.log")
	log := New(config.LoggingConfig{Level: "warn", File: path, MaxSizeMB: 1})
	log.Info("hidden")
	log.Warn("cycle aborted")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "cycle aborted") {
		t.Fatalf("expected warn line in %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("info line written below warn level: %q", data)
	}
}
