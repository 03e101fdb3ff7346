package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"subforge/internal/services"
	"subforge/internal/subtitles"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "extract audio", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "extract audio", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, services.ExitOK},
		{"validation", services.Wrap(services.ErrValidation, "segment", "load", "bad", nil), services.ExitInvalidInput},
		{"malformed", fmt.Errorf("rewrite: %w", subtitles.ErrMalformedInput), services.ExitInvalidInput},
		{"options", fmt.Errorf("assemble: %w", subtitles.ErrInvalidOptions), services.ExitInvalidInput},
		{"tool", services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", errors.New("exit 1")), services.ExitExternalTool},
		{"tool output", services.Wrap(services.ErrExternalTool, "rewrite", "batch 2/4", "", fmt.Errorf("parse: %w", subtitles.ErrMalformedInput)), services.ExitExternalTool},
		{"transient", services.Wrap(services.ErrTransient, "rewrite", "batch 3", "", errors.New("io")), services.ExitFailure},
	}
	for _, tt := range tests {
		if got := services.ExitCode(tt.err); got != tt.want {
			t.Fatalf("%s: exit code %d, want %d", tt.name, got, tt.want)
		}
	}
}
