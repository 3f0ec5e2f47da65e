// Package version parses and orders semantic schema versions.
// Versions follow the on-disk filename convention v<major>.<minor>.<patch>.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// filePattern is the exact shape a version filename stem must have
// to be picked up by discovery.
var filePattern = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)

// Key is the ordering key for a semantic version.
type Key struct {
	Major int
	Minor int
	Patch int
}

// MatchesFilename reports whether a filename stem (without extension)
// is a valid version filename, e.g. "v1.2.3".
func MatchesFilename(stem string) bool {
	return filePattern.MatchString(stem)
}

// Parse converts a version string like "v1.2.3" into an ordering key.
// A leading "v" is optional. Missing trailing components default to 0,
// so "v1.2" parses as 1.2.0. Non-numeric components yield the zero key
// and ok=false; callers sorting by key treat that as "sorts first"
// rather than an error.
func Parse(raw string) (Key, bool) {
	clean := strings.TrimPrefix(raw, "v")
	parts := strings.Split(clean, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}

	var nums [3]int
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return Key{}, false
		}
		nums[i] = n
	}

	return Key{Major: nums[0], Minor: nums[1], Patch: nums[2]}, true
}

// String formats the key back into the canonical "v1.2.3" form.
func (k Key) String() string {
	return fmt.Sprintf("v%d.%d.%d", k.Major, k.Minor, k.Patch)
}

// Compare returns -1, 0, or 1 by lexicographic comparison on
// (major, minor, patch).
func (k Key) Compare(o Key) int {
	if c := cmp(k.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp(k.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp(k.Patch, o.Patch)
}

// Less reports whether k orders before o.
func (k Key) Less(o Key) bool {
	return k.Compare(o) < 0
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
