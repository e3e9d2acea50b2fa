package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// CheckBridgeCompatibility checks whether the local client version and the
// version reported by a live bridge can talk to each other.
// Returns nil if compatible, an ErrCodeVersionMismatch error with details if not.
//
// Compatibility rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Client 1.2.0, Bridge 1.2.0 -> OK (exact match)
//   - Client 1.2.1, Bridge 1.2.0 -> OK (patch differs)
//   - Client 1.3.0, Bridge 1.2.0 -> ERROR (minor differs)
//   - Client 2.0.0, Bridge 1.2.0 -> ERROR (major differs)
//   - Client main, Bridge 1.2.0 -> OK (dev build, skip check)
//   - Client 1.2.0, Bridge main -> OK (dev build, skip check)
func CheckBridgeCompatibility(clientVersion, bridgeVersion string) error {
	// Strip 'v' prefix if present for consistency
	clientVersion = strings.TrimPrefix(clientVersion, "v")
	bridgeVersion = strings.TrimPrefix(bridgeVersion, "v")

	// Skip version check for "main" (development builds)
	if clientVersion == "main" || bridgeVersion == "main" {
		return nil
	}

	clientSemver, err := semver.NewVersion(clientVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid client version '%s'", clientVersion)
	}

	bridgeSemver, err := semver.NewVersion(bridgeVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid bridge version '%s'", bridgeVersion)
	}

	if clientSemver.Major() != bridgeSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: client is %d.x.x but bridge reports %d.x.x",
			clientSemver.Major(), bridgeSemver.Major())
	}

	if clientSemver.Minor() != bridgeSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: client is %d.%d.x but bridge reports %d.%d.x",
			clientSemver.Major(), clientSemver.Minor(),
			bridgeSemver.Major(), bridgeSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
