package setup

import (
	"strconv"
	"strings"
)

// Firmware 1.9.2 introduced structured attribute writes for the input tables;
// older firmware only understands the name-keyed array write.
var structuredWriteMin = [3]int{1, 9, 2}

// SupportsStructuredWrite reports whether a firmware version string (as read
// from the Basic cluster's SWBuildID, e.g. "1.9.7" or "2.0.1-beta") is new
// enough for structured writes. Unparseable versions get the legacy path.
func SupportsStructuredWrite(version string) bool {
	parsed, ok := parseVersion(version)
	if !ok {
		return false
	}
	for i := range structuredWriteMin {
		if parsed[i] != structuredWriteMin[i] {
			return parsed[i] > structuredWriteMin[i]
		}
	}
	return true
}

func parseVersion(version string) ([3]int, bool) {
	var out [3]int
	version = strings.TrimSpace(version)
	if i := strings.IndexAny(version, "-+ "); i >= 0 {
		version = version[:i]
	}
	parts := strings.Split(version, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return out, false
		}
		out[i] = n
	}
	return out, true
}
