package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// probeVersion runs the binary with args and returns the first non-empty
// output line. Failures yield "".
func probeVersion(path string, args []string) string {
	ctx, cancel := context.WithTimeout(context.Background(), versionProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, args...).CombinedOutput() //nolint:gosec
	if err != nil {
		return ""
	}
	return firstLine(string(output))
}

func firstLine(output string) string {
	for line := range strings.Lines(output) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
