package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration parses the Go duration string at path. Blank or zero yields def;
// negative values are rejected.
func Duration(path, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %q is not a duration: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: must not be negative", path)
	case d == 0:
		return def, nil
	}
	return d, nil
}
