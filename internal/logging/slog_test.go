package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func debugLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_EveryLevel(t *testing.T) {
	log, buf := debugLogger()
	ctx := context.Background()

	emit := map[string]func(context.Context, string, ...any){
		"DEBUG": log.Debug,
		"INFO":  log.Info,
		"WARN":  log.Warn,
		"ERROR": log.Error,
	}
	for level, fn := range emit {
		buf.Reset()
		fn(ctx, "download failed", "id", "42")
		line := buf.String()
		for _, want := range []string{"level=" + level, `msg="download failed"`, "id=42"} {
			if !strings.Contains(line, want) {
				t.Fatalf("%s: missing %q in %q", level, want, line)
			}
		}
	}
}

func TestSlogLogger_WithKeepsComponent(t *testing.T) {
	log, buf := debugLogger()

	child := log.With("component", "verification")
	child.Info(context.TODO(), "otp requested", "step", "awaiting otp")
	log.Info(context.TODO(), "parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %q", lines)
	}
	if !strings.Contains(lines[0], "component=verification") || !strings.Contains(lines[0], `step="awaiting otp"`) {
		t.Fatalf("child line missing attributes: %q", lines[0])
	}
	if strings.Contains(lines[1], "component=") {
		t.Fatalf("parent must not inherit child attributes: %q", lines[1])
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")
	ctx := context.Background()

	log.Info(ctx, "hidden")
	log.Warn(ctx, "shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line must be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=v") {
		t.Fatalf("warn line missing:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNop_DoesNotPanic(t *testing.T) {
	var l Logger = Nop()
	l.With("a", 1).Error(context.Background(), "dropped")
}
