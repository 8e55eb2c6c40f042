// Package logging builds the process-wide zap logger: a console core plus a
// Datadog export core, teed together so every record emitted anywhere in the
// process is both printed locally and shipped to the log backend.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fleveque/greeting-service/internal/config"
)

// Version is attached as a ddtag to every exported record, so log streams
// can be sliced by deployment.
const Version = "0.1.0"

// New builds the teed logger. The returned close function stops the export
// worker after flushing; callers defer it alongside logger.Sync.
func New(cfg *config.Config) (*zap.Logger, func(), error) {
	consoleLevel, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level %q: %w", cfg.Log.Level, err)
	}
	exportLevel, err := zapcore.ParseLevel(cfg.Datadog.MinLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing datadog min level %q: %w", cfg.Datadog.MinLevel, err)
	}

	// Console core: JSON in production, human-readable in debug — same split
	// zap's own presets make.
	var consoleEnc zapcore.Encoder
	if consoleLevel == zapcore.DebugLevel {
		encCfg := zap.NewDevelopmentEncoderConfig()
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	}
	consoleCore := zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), consoleLevel)

	// Every exported record carries env and version tags on top of whatever
	// the operator configured.
	tags := append([]string{}, cfg.Datadog.Tags...)
	if cfg.Datadog.Env != "" {
		tags = append(tags, "env:"+cfg.Datadog.Env)
	}
	tags = append(tags, "version:"+Version)

	ddCore := NewDatadogCore(DatadogOptions{
		APIKey:        cfg.Datadog.APIKey,
		Site:          cfg.Datadog.Site,
		Service:       cfg.Datadog.Service,
		Source:        cfg.Datadog.Source,
		Tags:          tags,
		MinLevel:      exportLevel,
		QueueSize:     cfg.Datadog.QueueSize,
		BatchSize:     cfg.Datadog.BatchSize,
		FlushInterval: cfg.Datadog.FlushInterval,
	})

	logger := zap.New(
		zapcore.NewTee(consoleCore, ddCore),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	closeFn := func() {
		// Sync commonly fails on stdout/stderr (not a real problem).
		_ = logger.Sync()
		ddCore.Stop()
	}

	return logger, closeFn, nil
}
