package core

import (
	"fmt"
	"strconv"
)

// ParseProjectID parses a path parameter into a positive project identifier.
//
// Only plain base-10 digits are accepted. Signs, surrounding or embedded
// whitespace and values that overflow int64 yield ErrInvalidProjectID.
func ParseProjectID(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidProjectID)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidProjectID, raw)
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidProjectID, raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d must be positive", ErrInvalidProjectID, id)
	}
	return id, nil
}
