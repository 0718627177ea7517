package update

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// twoSegmentRegex matches a bare "major.minor" version.
var twoSegmentRegex = regexp.MustCompile(`^\d+\.\d+$`)

// Version is an immutable semantic version.
// The zero value is 0.0.0.
type Version struct {
	sv *semver.Version
}

var zeroVersion = semver.New(0, 0, 0, "", "")

// NewVersion builds a release version from its numeric segments.
func NewVersion(major, minor, patch uint64) Version {
	return Version{sv: semver.New(major, minor, patch, "", "")}
}

// ParseVersion parses a loosely formatted version string.
// Surrounding whitespace and a single leading 'v' or 'V' are ignored, and a
// two-segment version such as "1.2" is read as "1.2.0".
// Malformed input yields 0.0.0 rather than an error so that a bad remote
// version never blocks the caller; use ParseVersionStrict to detect failure.
func ParseVersion(s string) Version {
	v, err := ParseVersionStrict(s)
	if err != nil {
		return Version{}
	}
	return v
}

// ParseVersionStrict applies the same normalisation as ParseVersion but
// reports malformed input.
func ParseVersionStrict(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("%w: empty version string", ErrInvalidVersion)
	}
	if s[0] == 'v' || s[0] == 'V' {
		s = s[1:]
	}
	if twoSegmentRegex.MatchString(s) {
		s += ".0"
	}

	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %s", ErrInvalidVersion, err)
	}
	return Version{sv: sv}, nil
}

func (v Version) semver() *semver.Version {
	if v.sv == nil {
		return zeroVersion
	}
	return v.sv
}

// Major returns the major segment.
func (v Version) Major() uint64 { return v.semver().Major() }

// Minor returns the minor segment.
func (v Version) Minor() uint64 { return v.semver().Minor() }

// Patch returns the patch segment.
func (v Version) Patch() uint64 { return v.semver().Patch() }

// Prerelease returns the pre-release suffix, if any.
func (v Version) Prerelease() string { return v.semver().Prerelease() }

// Metadata returns the build metadata, if any.
func (v Version) Metadata() string { return v.semver().Metadata() }

// IsZero reports whether v is 0.0.0 with no pre-release.
func (v Version) IsZero() bool {
	return v.Compare(Version{}) == 0
}

// Bump returns the next patch release after v.
func (v Version) Bump() Version {
	next := v.semver().IncPatch()
	return Version{sv: &next}
}

// String returns the canonical form without a 'v' prefix.
func (v Version) String() string {
	return v.semver().String()
}

// Compare compares two versions.
// Returns:
//
//	-1 if v < other
//	 0 if v == other
//	 1 if v > other
//
// Prerelease versions are considered less than release versions and build
// metadata is ignored.
func (v Version) Compare(other Version) int {
	return v.semver().Compare(other.semver())
}

// LessThan returns true if v < other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan returns true if v > other.
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// Equal returns true if v == other.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}
