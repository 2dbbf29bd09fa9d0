package imaging

import (
	"sort"

	"clipper/internal/processor"
)

// Builtins maps processor names used in configuration to constructors.
func Builtins() map[string]func() processor.Processor {
	return map[string]func() processor.Processor{
		"fix_rotation": NewFixRotation,
		"resize":       NewResize,
	}
}

// Names lists the builtin processor names.
func Names() []string {
	builtins := Builtins()
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
