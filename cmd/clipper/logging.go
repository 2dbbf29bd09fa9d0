package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"clipper/internal/config"
)

const logLevelEnvKey = "CLIPPER_LOG_LEVEL"

// levelCandidate is one place a log level can come from, in precedence order.
type levelCandidate struct {
	origin string
	value  string
}

func levelCandidates(flagLevel, configLevel string) []levelCandidate {
	return []levelCandidate{
		{origin: "--log-level", value: flagLevel},
		{origin: logLevelEnvKey, value: os.Getenv(logLevelEnvKey)},
		{origin: "log_level", value: configLevel},
	}
}

// pickLogLevel returns the first usable level. A bad flag is an error. A bad
// env or config value is skipped with a warning so the next source applies.
func pickLogLevel(candidates []levelCandidate) (slog.Level, []string, error) {
	var warnings []string
	for i, c := range candidates {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		level, err := parseLogLevel(c.value)
		if err == nil {
			return level, warnings, nil
		}
		if i == 0 {
			return 0, nil, fmt.Errorf("invalid %s %q", c.origin, c.value)
		}
		warnings = append(warnings, fmt.Sprintf("warning: ignoring %s=%q", c.origin, c.value))
	}
	level, _ := parseLogLevel(config.DefaultLogLevel)
	return level, warnings, nil
}

func configureLoggerForCLI(w io.Writer, flagLevel, configLevel string) ([]string, error) {
	level, warnings, err := pickLogLevel(levelCandidates(flagLevel, configLevel))
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return warnings, nil
}

// parseLogLevel accepts slog level names, "warning" and numeric levels.
func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}
