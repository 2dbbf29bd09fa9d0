package models

// Options is the option set a derivative is requested with. Values may
// nest: a value can itself be a map[string]any or a slice.
type Options map[string]any

// IsEmpty reports whether the option set selects the original.
func (o Options) IsEmpty() bool {
	return len(o) == 0
}

// Clone returns a deep copy of nested maps and slices.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, nested := range value {
			out[k] = cloneValue(nested)
		}
		return out
	case Options:
		return value.Clone()
	case []any:
		out := make([]any, len(value))
		for i, nested := range value {
			out[i] = cloneValue(nested)
		}
		return out
	default:
		return v
	}
}
