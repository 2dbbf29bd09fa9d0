package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"clipper/internal/models"
)

// Presets maps a preset name to the option set it stands for.
type Presets map[string]models.Options

// DefaultPresets are available without a presets file.
func DefaultPresets() Presets {
	return Presets{
		"shrink": {"width": 100, "height": 100, "preserve_ratio": true},
	}
}

// LoadPresets reads a YAML presets file and layers it over the defaults.
// An empty path yields the defaults alone.
//
//	thumb:
//	  width: 64
//	  height: 64
//	  preserve_ratio: true
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	path = strings.TrimSpace(path)
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets %s: %w", path, err)
	}
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	for name, opts := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("parse presets %s: empty preset name", path)
		}
		if len(opts) == 0 {
			return nil, fmt.Errorf("parse presets %s: preset %q has no options", path, name)
		}
		presets[name] = models.Options(opts)
	}
	return presets, nil
}

// Get returns a copy of the named preset.
func (p Presets) Get(name string) (models.Options, error) {
	opts, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(p.Names(), ", "))
	}
	return opts.Clone(), nil
}

// Names lists preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
