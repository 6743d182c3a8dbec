package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	Named("test").Info(context.Background(), "test message", String("k", "v"))
}

func TestNewWritesFieldsAndSource(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug).Named("bracket")

	l.Warn(context.Background(), "bracket warning", String("kind", "destination_full"), Int("round", 2), Bool("fallback", false))

	out := buf.String()
	for _, want := range []string{"bracket warning", "kind=destination_full", "round=2", "fallback=false", "logger=bracket", "logger_test.go"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Info(context.Background(), "hidden")
	l.Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.Error(context.Background(), "shown")
	if buf.Len() == 0 {
		t.Fatal("expected error record")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "discarded", Error(nil))
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "", "warning", "error"} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q): %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
