// Package version infers Boost release versions from export fields and file
// paths, and normalizes and compares the resulting version strings.
package version

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// matcher recognises one path notation and formats its captures as a
// dotted version.
type matcher struct {
	re     *regexp.Regexp
	format func(groups []string) string
}

// pathMatchers are tried in order; the first match wins.
var pathMatchers = []matcher{
	{
		// /boost_1_57_0/ or /boost-1-57-0/
		re: regexp.MustCompile(`/boost[_-](\d+)[_-](\d+)[_-](\d+)`),
		format: func(g []string) string {
			return g[1] + "." + g[2] + "." + g[3]
		},
	},
	{
		// /boost-1.57.0/
		re:     regexp.MustCompile(`/boost[_-](\d+\.\d+\.\d+)`),
		format: func(g []string) string { return g[1] },
	},
	{
		// /boost1.57.0/
		re:     regexp.MustCompile(`/boost(\d+\.\d+\.\d+)`),
		format: func(g []string) string { return g[1] },
	},
}

// Infer returns the explicit version when it is non-empty, otherwise the
// version embedded in filePath, otherwise "".
func Infer(explicit, filePath string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return FromPath(filePath)
}

// FromPath extracts a version from a vendored Boost directory name in path.
func FromPath(path string) string {
	if path == "" {
		return ""
	}
	for _, m := range pathMatchers {
		if g := m.re.FindStringSubmatch(path); g != nil {
			return m.format(g)
		}
	}
	return ""
}

// Normalize returns v as major.minor.patch using the legacy report
// convention: a single-digit non-zero minor is treated as a truncated
// two-digit minor, so the minor and patch digits are concatenated and the
// patch resets to zero ("1.8" and "1.8.0" become "1.80.0", "1.8.1" becomes
// "1.81.0"). The result is always a fixed point of Normalize.
func Normalize(v string) string {
	parts := split(v)
	c := components(parts)
	// A zero minor is left alone: older reports printed 1.0.5 as 1.05.0.
	if len(parts) >= 2 && c[1] >= 1 && c[1] <= 9 {
		minor, err := strconv.Atoi(strconv.Itoa(c[1]) + strconv.Itoa(c[2]))
		if err == nil {
			c[1], c[2] = minor, 0
		}
	}
	return format(c)
}

// Canonical returns v as major.minor.patch, padding missing components with
// zero and leaving single-digit minors alone.
func Canonical(v string) string {
	return format(components(split(v)))
}

// Compare compares up to three numeric components of a and b and returns
// -1, 0 or 1. Missing or non-numeric components count as zero.
func Compare(a, b string) int {
	ka, kb := Key(a), Key(b)
	for i := range ka {
		switch {
		case ka[i] < kb[i]:
			return -1
		case ka[i] > kb[i]:
			return 1
		}
	}
	return 0
}

// Key returns the numeric major, minor and patch components of v.
func Key(v string) [3]int {
	return components(split(v))
}

// SortDescending sorts versions newest first.
func SortDescending(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) > 0
	})
}

// MajorMinor returns the first two dotted components of v.
func MajorMinor(v string) string {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ".")
}

func split(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return strings.Split(v, ".")
}

func components(parts []string) [3]int {
	var c [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		c[i] = digits(parts[i])
	}
	return c
}

// digits parses the decimal digits of s, ignoring everything else.
func digits(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

func format(c [3]int) string {
	return fmt.Sprintf("%d.%d.%d", c[0], c[1], c[2])
}
