package logging

import (
	"testing"
	"time"

	"github.com/fleveque/greeting-service/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Datadog: config.DatadogConfig{
			APIKey:        "test-api-key",
			Site:          "datadoghq.com",
			Service:       "greeting-service",
			Env:           "test",
			Source:        "go",
			MinLevel:      "info",
			QueueSize:     16,
			BatchSize:     4,
			FlushInterval: time.Hour,
		},
		Log: config.LogConfig{Level: "info"},
	}
}

func TestNew_BuildsTeedLogger(t *testing.T) {
	cfg := testConfig()

	logger, closeFn, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a logger")
	}
	// Nothing was logged at export level, so closing never touches the network.
	closeFn()
}

func TestNew_RejectsBadConsoleLevel(t *testing.T) {
	cfg := testConfig()
	cfg.Log.Level = "shouty"

	if _, _, err := New(cfg); err == nil {
		t.Error("expected an error for a bad log level")
	}
}

func TestNew_RejectsBadExportLevel(t *testing.T) {
	cfg := testConfig()
	cfg.Datadog.MinLevel = "loudest"

	if _, _, err := New(cfg); err == nil {
		t.Error("expected an error for a bad datadog min level")
	}
}
