package fingerprint

import (
	"fmt"
	"math"
	"reflect"
)

// normalize maps arbitrary decoded option values (from JSON, YAML, TOML or
// Go literals) onto the closed value model. Integral floats collapse to
// int64 so that 100 and 100.0 fingerprint identically.
func normalize(v reflect.Value, path string) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		return normalize(v.Elem(), path)
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %s overflows int64", ErrMalformed, describe(path))
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s is not a finite number", ErrMalformed, describe(path))
		}
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), nil
		}
		return f, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		return normalizeMap(v, path)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes()), nil
		}
		return normalizeList(v, path)
	case reflect.Array:
		return normalizeList(v, path)
	default:
		return nil, fmt.Errorf("%w: unsupported %s value at %s", ErrMalformed, v.Kind(), describe(path))
	}
}

func normalizeMap(v reflect.Value, path string) (map[string]any, error) {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() || (v.Kind() == reflect.Map && v.IsNil()) {
		return map[string]any{}, nil
	}
	if v.Kind() != reflect.Map {
		return nil, fmt.Errorf("%w: expected a map at %s", ErrMalformed, describe(path))
	}
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map keys must be strings at %s", ErrMalformed, describe(path))
	}

	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		value, err := normalize(iter.Value(), join(path, key))
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func normalizeList(v reflect.Value, path string) ([]any, error) {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		value, err := normalize(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func describe(path string) string {
	if path == "" {
		return "top level"
	}
	return fmt.Sprintf("%q", path)
}
