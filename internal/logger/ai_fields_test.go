package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithCommonFields(logger, "  gemini  ", "gemini-2.5-pro")
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields[FieldProvider] != "gemini" {
		t.Fatalf("unexpected provider field: %v", fields[FieldProvider])
	}
	if fields[FieldModel] != "gemini-2.5-pro" {
		t.Fatalf("unexpected model field: %v", fields[FieldModel])
	}
}

func TestWithCommonFieldsOmitsEmptyValues(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	WithCommonFields(logger, "   ", "").Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if len(entries[0].Context) != 0 {
		t.Fatalf("expected no extra fields, got %+v", entries[0].Context)
	}
}

func TestWithCommonFieldsNilLogger(t *testing.T) {
	if WithCommonFields(nil, "gemini", "model") == nil {
		t.Fatalf("expected a usable logger for nil input")
	}
}
