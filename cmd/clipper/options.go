package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"clipper/internal/clipper"
	"clipper/internal/config"
	"clipper/internal/models"
)

// parseOptionArgs turns repeated k=v flags into an option set. Values that
// parse as bool, int or float keep that type. Dotted keys nest.
func parseOptionArgs(pairs []string) (models.Options, error) {
	opts := models.Options{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q (expected key=value)", pair)
		}
		if err := setOption(opts, strings.Split(key, "."), parseOptionValue(raw)); err != nil {
			return nil, fmt.Errorf("invalid option %q: %w", pair, err)
		}
	}
	return opts, nil
}

func parseOptionValue(raw string) any {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		return parsed
	}
	return value
}

func setOption(opts map[string]any, parts []string, value any) error {
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("empty key segment")
		}
	}
	if len(parts) == 1 {
		if _, isMap := opts[parts[0]].(map[string]any); isMap {
			return fmt.Errorf("%q already holds nested options", parts[0])
		}
		opts[parts[0]] = value
		return nil
	}
	existing, ok := opts[parts[0]]
	if !ok {
		child := map[string]any{}
		opts[parts[0]] = child
		return setOption(child, parts[1:], value)
	}
	child, ok := existing.(map[string]any)
	if !ok {
		return fmt.Errorf("%q already holds a value", parts[0])
	}
	return setOption(child, parts[1:], value)
}

// buildOptions starts from the named preset, if any, and layers the k=v
// flags on top.
func buildOptions(cfg *config.Config, preset string, pairs []string) (models.Options, error) {
	opts := models.Options{}
	if preset = strings.TrimSpace(preset); preset != "" {
		presets, err := config.LoadPresets(cfg.PresetsPath)
		if err != nil {
			return nil, err
		}
		base, err := presets.Get(preset)
		if err != nil {
			return nil, err
		}
		opts = base
	}
	overrides, err := parseOptionArgs(pairs)
	if err != nil {
		return nil, err
	}
	mergeOptions(opts, overrides)
	return opts, nil
}

func mergeOptions(dst, src map[string]any) {
	for key, value := range src {
		srcChild, srcIsMap := value.(map[string]any)
		dstChild, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeOptions(dstChild, srcChild)
			continue
		}
		dst[key] = value
	}
}

// lookupFile accepts a numeric id or a label.
func lookupFile(ctx context.Context, svc *clipper.Service, arg string) (*models.File, error) {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return svc.GetFile(ctx, id)
	}
	return svc.GetFileByLabel(ctx, arg)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}
