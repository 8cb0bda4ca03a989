package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected the lone handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsEachLevel(t *testing.T) {
	var info, debug bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug")
	}

	logger := slog.New(h)
	logger.Debug("merge outcome", "channel", "CCTV1")
	logger.Info("run complete")

	if strings.Contains(info.String(), "merge outcome") {
		t.Fatalf("info handler received debug record: %s", info.String())
	}
	if !strings.Contains(debug.String(), "merge outcome") || !strings.Contains(debug.String(), "run complete") {
		t.Fatalf("debug handler missing records: %s", debug.String())
	}
}

func TestFanoutHandlerWithAttrsReachesAll(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldRunID, "r1")})).WithGroup("src").Info("fetched", "lines", 3)

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"run_id":"r1"`) || !strings.Contains(out, `"src":{"lines":3}`) {
			t.Fatalf("unexpected output: %s", out)
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var base, tee bytes.Buffer
	logger := TeeLogger(slog.New(slog.NewJSONHandler(&base, nil)), slog.NewJSONHandler(&tee, nil))
	logger.Info("hello")
	if !strings.Contains(base.String(), "hello") || !strings.Contains(tee.String(), "hello") {
		t.Fatalf("expected both sinks to receive record; base=%q tee=%q", base.String(), tee.String())
	}

	tee.Reset()
	TeeLogger(nil, slog.NewJSONHandler(&tee, nil)).Info("solo")
	if !strings.Contains(tee.String(), "solo") {
		t.Fatalf("expected tee output with nil base, got %q", tee.String())
	}
}

func TestNewDiagnosticsHandlerWritesDebug(t *testing.T) {
	dir := t.TempDir()
	handler, path, closeFn, err := NewDiagnosticsHandler(dir, "run-1")
	if err != nil {
		t.Fatalf("NewDiagnosticsHandler: %v", err)
	}
	slog.New(handler).Debug("raw entry", String(FieldChannel, "CCTV1"))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read diagnostics log: %v", err)
	}
	if !strings.Contains(string(data), `"level":"debug"`) || !strings.Contains(string(data), `"channel":"CCTV1"`) {
		t.Fatalf("unexpected diagnostics log: %s", data)
	}
}
