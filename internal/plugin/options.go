package plugin

import (
	"fmt"
	"time"
)

// Options is the decoded options map of a plugin descriptor. Getters accept
// the shapes YAML decoding produces.
type Options map[string]any

// String returns the option as a string, or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok && s != "" {
		return s
	}
	return def
}

// Bool returns the option as a bool, or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the option as an int, or def.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Strings returns a list option, or def. A single string is a one-element list.
func (o Options) Strings(key string, def []string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return def
}

// Duration returns a duration option written as a Go duration string, or def.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	if s, ok := o[key].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}

// OneOf returns the string option if it is among allowed, or an error.
func (o Options) OneOf(key, def string, allowed ...string) (string, error) {
	v := o.String(key, def)
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("option %s: %q is not one of %v", key, v, allowed)
}
