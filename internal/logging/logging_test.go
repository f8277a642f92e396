package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := New(zap.New(core)).Named("pipeline").With("job", "abc")

	logger.Infow("Transcription complete", "cues", 12)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Message != "Transcription complete" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.LoggerName != "pipeline" {
		t.Errorf("logger name = %q, want pipeline", entry.LoggerName)
	}

	fields := entry.ContextMap()
	if fields["job"] != "abc" {
		t.Errorf("job field = %v, want abc", fields["job"])
	}
	if fields["cues"] != int64(12) {
		t.Errorf("cues field = %v (%T), want 12", fields["cues"], fields["cues"])
	}
}

func TestNewLoggerLevels(t *testing.T) {
	if NewLogger(false).Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("non-verbose logger should not enable debug level")
	}
	if !NewLogger(true).Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose logger should enable debug level")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	logger.Warnw("ignored", "key", "value")
	logger.Sync()
}
