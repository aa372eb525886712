package version

import (
	"cmp"
	"strconv"
	"strings"
)

// Compare compares two dotted numeric versions and returns -1, 0 or +1.
// A missing trailing component is 0, so "5.3" equals "5.3.0". Components
// which are not a non-negative integer ("0-beta", "rc1") count as 0 too,
// pre-release suffixes are not ordered.
func Compare(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	for i := range max(len(as), len(bs)) {
		if c := cmp.Compare(component(as, i), component(bs, i)); c != 0 {
			return c
		}
	}
	return 0
}

// IsUpdateAvailable returns true if latest is newer than current.
func IsUpdateAvailable(current, latest string) bool {
	return Compare(latest, current) > 0
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
