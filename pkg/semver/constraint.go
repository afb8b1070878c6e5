// Package semver checks client version constraints against the registry's
// protocol version.
package semver

import (
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:constraint"

var majorOnlyRegex = regexp.MustCompile(`^\d+$`)

// IsMajorOnly reports whether constraint is a bare major such as "1".
func IsMajorOnly(constraint string) bool {
	return majorOnlyRegex.MatchString(constraint)
}

// CheckConstraint returns nil when version satisfies constraint. An empty
// constraint always passes. A bare major "N" is read as "^N.0.0".
func CheckConstraint(version, constraint string) error {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return nil
	}
	if IsMajorOnly(constraint) {
		constraint = "^" + constraint + ".0.0"
	}

	v, err := masterminds.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}
	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("%s - invalid constraint %q: %w", logPrefix, constraint, err)
	}
	if ok, errs := c.Validate(v); !ok {
		if len(errs) > 0 {
			return fmt.Errorf("%s - version %s does not satisfy %q: %w", logPrefix, version, constraint, errs[0])
		}
		return fmt.Errorf("%s - version %s does not satisfy %q", logPrefix, version, constraint)
	}
	return nil
}

// Major returns the major component of version.
func Major(version string) (int, error) {
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return 0, fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}
	return int(v.Major()), nil
}
