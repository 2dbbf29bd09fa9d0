package main

import (
	"context"
	"errors"
	"net"

	"clipper/internal/clipper"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	switch clipper.KindOf(err) {
	case clipper.ErrNotFound:
		lines = append(lines, "hint: list stored files with: clipper ls")
	case clipper.ErrValidation:
		lines = append(lines, "hint: check the command arguments; run with --help for usage.")
	case clipper.ErrPipelineAborted:
		lines = append(lines, "hint: a processor declined these options; check the processors configured for this mime type.")
	case clipper.ErrStorage:
		lines = append(lines,
			"hint: check the backend root is writable and has free space.",
			"hint: large originals may need a higher max_scratch_bytes.",
		)
	case clipper.ErrUnsupportedSource:
		lines = append(lines, "hint: save accepts a local file path or an http(s) URL.")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; increase fetch_timeout for slow sources.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines, "hint: the source URL could not be reached; check the address and network access.")
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
