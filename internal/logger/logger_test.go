package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"go_sitectl/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
		level   logrus.Level
	}{
		{"defaults", config.LogConfig{Level: "info", Format: "text"}, false, logrus.InfoLevel},
		{"json debug", config.LogConfig{Level: "debug", Format: "json"}, false, logrus.DebugLevel},
		{"bad level", config.LogConfig{Level: "loud", Format: "text"}, true, 0},
		{"bad format", config.LogConfig{Level: "info", Format: "xml"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && log.GetLevel() != tt.level {
				t.Errorf("New() level = %v, want %v", log.GetLevel(), tt.level)
			}
		})
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sitectl.log")
	log, err := New(config.LogConfig{Level: "info", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	log.WithField("component", "test").Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("log file = %q, want component field", string(data))
	}
}
