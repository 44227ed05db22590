package state

import (
	"regexp"

	"github.com/Masterminds/semver/v3"
)

var (
	// rcSuffix matches `-rcN` or `.rcN` style pre-release suffixes.
	rcSuffix = regexp.MustCompile(`(?i)[-.]rc\.?(\d+)$`)
	// milestoneSuffix matches `-mN` style pre-release suffixes.
	milestoneSuffix = regexp.MustCompile(`(?i)[-.]m\.?(\d+)$`)
)

// DeriveReleaseType classifies a tag per the release-type derivation
// rules: a bare X.Y.Z is GA, an -rcN/-mN suffix is a release candidate or
// milestone, and any other suffixed form is a maintenance release.
func DeriveReleaseType(tag string) ReleaseType {
	v, err := semver.NewVersion(tag)
	if err != nil {
		// Not a parseable semver at all; treat conservatively as a
		// maintenance build rather than erroring the whole pipeline.
		return ReleaseTypeMaintenance
	}

	pre := v.Prerelease()
	if pre == "" {
		return ReleaseTypeGA
	}

	if rcSuffix.MatchString("-" + pre) {
		return ReleaseTypeRC
	}
	if milestoneSuffix.MatchString("-" + pre) {
		return ReleaseTypeMilestone
	}
	return ReleaseTypeMaintenance
}

// ResolveReleaseType applies an optional operator override on top of the
// derived type. An empty forced value means "use the derived type".
func ResolveReleaseType(tag string, forced ReleaseType) ReleaseType {
	if forced != "" {
		return forced
	}
	return DeriveReleaseType(tag)
}
