package validation

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	MinWorkers = 1
	MaxWorkers = 20
)

func ValidateWorkerCount(workers int) error {
	if workers < MinWorkers || workers > MaxWorkers {
		return fmt.Errorf("worker count must be between %d and %d, got %d", MinWorkers, MaxWorkers, workers)
	}
	return nil
}

func ValidateID(kind string, id int) error {
	if id <= 0 {
		return fmt.Errorf("%s ID must be a positive integer, got %d", kind, id)
	}
	return nil
}

// ParseID parses a positional argument as a positive ID.
func ParseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%s ID must be a positive integer, got %q", kind, arg)
	}
	return id, ValidateID(kind, id)
}

func ValidateNonEmptyString(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateAPIURL requires an absolute http(s) URL.
func ValidateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API URL %q (must be an absolute http or https URL)", raw)
	}
	return nil
}
