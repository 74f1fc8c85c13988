// Package version resolves the version reported by the revlabel binary.
package version

import (
	_ "embed"
	"strings"
)

// fallback is the release recorded in the VERSION file, used when the
// binary was built without ldflags (e.g. go install).
//
//go:embed VERSION
var fallback string

// Get returns the embedded release with a "v" prefix.
func Get() string {
	return "v" + strings.TrimSpace(fallback)
}

// Resolve returns stamped unless it is empty or the "dev" placeholder, in
// which case the embedded release is used.
func Resolve(stamped string) string {
	stamped = strings.TrimSpace(stamped)
	if stamped == "" || stamped == "dev" {
		return Get()
	}
	return stamped
}
