package common

import (
	"fmt"
	"math"
	"strings"
)

// StringArg returns the string argument key, or "" when absent.
func StringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// RequiredStringArg returns the string argument key or an error naming it.
func RequiredStringArg(args map[string]interface{}, key string) (string, error) {
	v := StringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// OptionalStringArg returns a pointer to the raw string argument key, or nil
// when it is absent. Unlike StringArg, whitespace is preserved and an empty
// string is a value.
func OptionalStringArg(args map[string]interface{}, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

// IntArg returns the numeric argument key as an int within [min, max], or
// def when it is absent. JSON numbers arrive as float64.
func IntArg(args map[string]interface{}, key string, def, min, max int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}

	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	n := int(f)
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}
	return n, nil
}

// BoolArg returns the boolean argument key, or def when it is absent.
func BoolArg(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// OptionalBoolArg returns a pointer to the boolean argument key, or nil.
func OptionalBoolArg(args map[string]interface{}, key string) *bool {
	if v, ok := args[key].(bool); ok {
		return &v
	}
	return nil
}

// ParseCommaList splits a comma-separated string, dropping blanks.
func ParseCommaList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
