package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// CheckVersionCompatibility checks that a strategy or configuration file written for fileVersion
// can be loaded by an engine at engineVersion.
//
// Rules:
//   - "main" on either side skips the check
//   - an empty file version is accepted as written for the running engine
//   - major versions must match
//   - the file's minor version must not be newer than the engine's
//
// Examples:
//   - engine 1.2.0, file 1.2.0 -> OK
//   - engine 1.3.0, file 1.2.9 -> OK (older file)
//   - engine 1.2.0, file 1.3.0 -> ERROR (file uses newer settings)
//   - engine 2.0.0, file 1.2.0 -> ERROR (major differs)
func CheckVersionCompatibility(engineVersion, fileVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	fileVersion = strings.TrimPrefix(fileVersion, "v")

	if engineVersion == "main" || fileVersion == "main" || fileVersion == "" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version '%s'", engineVersion)
	}

	fileSemver, err := semver.NewVersion(fileVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid file version '%s'", fileVersion)
	}

	if engineSemver.Major() != fileSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: engine is %d.x.x but the file requires %d.x.x",
			engineSemver.Major(), fileSemver.Major())
	}

	if fileSemver.Minor() > engineSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: engine is %d.%d.x but the file requires %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			fileSemver.Major(), fileSemver.Minor())
	}

	return nil
}
