package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestTeeCollapses(t *testing.T) {
	if h := tee(nil, nil); h != slog.DiscardHandler {
		t.Fatalf("expected discard handler, got %T", h)
	}
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if h := tee(nil, inner); h != inner {
		t.Fatal("a single handler should be returned unwrapped")
	}
}

func TestTeeRoutesByLevel(t *testing.T) {
	var warnBuf, debugBuf bytes.Buffer
	h := tee(
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be enabled when any child accepts it")
	}

	logger := slog.New(h).With(slog.String("component", "test"))
	logger.Debug("debug only")
	if warnBuf.Len() != 0 || debugBuf.Len() == 0 {
		t.Fatalf("debug record misrouted: warn=%q debug=%q", warnBuf.String(), debugBuf.String())
	}

	logger.Warn("both", slog.String("attr", "value"))
	for name, buf := range map[string]*bytes.Buffer{"warn": &warnBuf, "debug": &debugBuf} {
		if !bytes.Contains(buf.Bytes(), []byte(`"attr":"value"`)) || !bytes.Contains(buf.Bytes(), []byte(`"component":"test"`)) {
			t.Fatalf("%s handler missing attrs: %q", name, buf.String())
		}
	}
}
