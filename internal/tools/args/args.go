// Package args provides shared helpers for extracting and validating MCP
// tool arguments. All failures are reported as ValidationError so handlers
// can reject a call before any upstream request is made.
package args

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Pagination defaults for list tools.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ValidationError describes a rejected tool argument.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return "invalid arguments: " + e.msg
}

// Errorf creates a ValidationError with a formatted message.
func Errorf(format string, a ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, a...)}
}

// RequiredString extracts a non-empty string argument.
func RequiredString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", Errorf("%s is required", key)
	}
	return v, nil
}

// OptionalString extracts a string argument, returning "" when absent.
func OptionalString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// StringWithDefault extracts a string argument, falling back to def when
// absent or empty.
func StringWithDefault(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// BoolWithDefault extracts a boolean argument with a fallback.
func BoolWithDefault(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// Int extracts an integer argument. JSON numbers arrive as float64; values
// with a fractional part are rejected.
func Int(args map[string]any, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, false, Errorf("%s must be a number", key)
	}
	if f != math.Trunc(f) {
		return 0, false, Errorf("%s must be a whole number", key)
	}
	return int(f), true, nil
}

// Limit extracts a page size argument, applying the default and the cap.
func Limit(args map[string]any, key string) (int, error) {
	n, present, err := Int(args, key)
	if err != nil {
		return 0, err
	}
	if !present {
		return DefaultLimit, nil
	}
	if n < 1 {
		return 0, Errorf("%s must be at least 1", key)
	}
	if n > MaxLimit {
		return MaxLimit, nil
	}
	return n, nil
}

// StringList extracts a list argument. Accepts either a JSON array of
// strings or a single comma-separated string.
func StringList(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case string:
		return splitCommaList(v), nil
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, Errorf("%s must contain only strings", key)
			}
			if s = strings.TrimSpace(s); s != "" {
				result = append(result, s)
			}
		}
		return result, nil
	default:
		return nil, Errorf("%s must be a string or an array of strings", key)
	}
}

// Int64List extracts a list of numeric IDs. Accepts a JSON array of numbers
// or strings, or a single comma-separated string.
func Int64List(args map[string]any, key string) ([]int64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var items []string
	switch v := raw.(type) {
	case string:
		items = splitCommaList(v)
	case []any:
		for _, item := range v {
			switch n := item.(type) {
			case float64:
				items = append(items, strconv.FormatInt(int64(n), 10))
			case string:
				items = append(items, n)
			default:
				return nil, Errorf("%s must contain numbers or numeric strings", key)
			}
		}
	default:
		return nil, Errorf("%s must be a string or an array", key)
	}

	result := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseInt(strings.TrimSpace(item), 10, 64)
		if err != nil {
			return nil, Errorf("%s contains invalid ID %q", key, item)
		}
		result = append(result, id)
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

// OneOf checks that an argument value is one of the allowed choices.
// Returns def when the argument is absent or empty.
func OneOf(args map[string]any, key, def string, allowed ...string) (string, error) {
	v := StringWithDefault(args, key, def)
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", Errorf("%s must be one of: %s", key, strings.Join(allowed, ", "))
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
