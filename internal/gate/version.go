package gate

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion reports a version that is not dotted numbers.
var ErrInvalidVersion = errors.New("invalid version")

// normalizeVersion drops a pre-release or build suffix and adds the "v"
// prefix the semver package requires. "8.6.0-DEV" becomes "v8.6.0", so a
// development build satisfies a minimum of its own release.
func normalizeVersion(v string) (string, error) {
	norm := v
	if i := strings.IndexAny(norm, "-+"); i >= 0 {
		norm = norm[:i]
	}
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return "", fmt.Errorf("%w %q: want dotted numbers like 8.5.0", ErrInvalidVersion, v)
	}
	return norm, nil
}

// ValidateVersion checks that v is a dotted numeric version with at most
// three components, such as "8", "7.81" or "8.6.0-DEV".
func ValidateVersion(v string) error {
	_, err := normalizeVersion(v)
	return err
}

// CompareVersions compares two versions component by component. Missing
// components count as zero and suffixes are ignored. An invalid version
// sorts before every valid one. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	na, errA := normalizeVersion(a)
	nb, errB := normalizeVersion(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return semver.Compare(na, nb)
}
