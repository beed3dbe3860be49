package updater

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions compares two version strings using semver.
// Returns -1 if current < latest, 0 if equal, 1 if current > latest.
// Handles "v" prefix tolerance (strips leading "v" before parsing).
func CompareVersions(current, latest string) (int, error) {
	cv, err := parseSemver(current)
	if err != nil {
		return 0, fmt.Errorf("parsing current version %q: %w", current, err)
	}
	lv, err := parseSemver(latest)
	if err != nil {
		return 0, fmt.Errorf("parsing latest version %q: %w", latest, err)
	}
	return cv.Compare(lv), nil
}

// IsValid reports whether v is a full MAJOR.MINOR.PATCH semantic version,
// optionally prefixed with "v".
func IsValid(v string) bool {
	_, err := parseSemver(v)
	return err == nil
}

// NeedsUpdate reports whether an extension recorded at recorded should be
// downloaded again given the marketplace's latest version.
//
// Anything recorded that is not a valid semantic version is always out of
// date. Otherwise latest must be valid and strictly greater.
func NeedsUpdate(recorded, latest string) bool {
	if !IsValid(recorded) {
		return true
	}
	cmp, err := CompareVersions(recorded, latest)
	if err != nil {
		return false
	}
	return cmp == -1
}

// parseSemver strips a leading "v" and parses the version strictly, so
// partial versions like "1.2" are rejected.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	return semver.StrictNewVersion(version)
}
