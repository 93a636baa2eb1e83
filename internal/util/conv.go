package util

import (
	"strconv"
)

// ParsePosition parses a 0-based question position from a path segment; -1 when invalid.
func ParsePosition(s string) int {
	pos, err := strconv.Atoi(s)
	if err != nil || pos < 0 {
		return -1
	}
	return pos
}
