package utils

import (
	"fmt"
	"strconv"
	"time"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// ParseID parses a positive integer identifier from a path segment.
func ParseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("id %q must be a positive integer: %w", value, ErrInvalidRequest)
	}
	return id, nil
}

// ParseTimestamp parses an RFC 3339 timestamp. Empty input yields nil.
func ParseTimestamp(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(TimestampLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not an ISO 8601 timestamp: %w", field, value, ErrInvalidRequest)
	}
	return &t, nil
}
