package config

import (
	"fmt"

	cerrors "github.com/opsconductor/conductor/internal/errors"
)

// Validate checks structural correctness of a loaded config: unique
// package names, non-empty workflow identifiers, and resolvable
// depends_on edges. Configuration errors are fatal per §7.
func Validate(c *Config) error {
	const op = "config.Validate"

	if len(c.Packages) == 0 {
		return cerrors.New(cerrors.KindConfig, "no packages configured").WithDetail("op", op)
	}

	seen := make(map[string]bool, len(c.Packages))
	for _, pkg := range c.Packages {
		if pkg.Name == "" {
			return cerrors.Newf(cerrors.KindConfig, "%s: package entry missing name", op)
		}
		if seen[pkg.Name] {
			return cerrors.Newf(cerrors.KindConfig, "%s: duplicate package name %q", op, pkg.Name)
		}
		seen[pkg.Name] = true

		if pkg.Repo == "" {
			return cerrors.Newf(cerrors.KindConfig, "%s: package %q missing repo", op, pkg.Name)
		}
		if err := validatePhase(op, pkg.Name, "build", pkg.Build); err != nil {
			return err
		}
		if err := validatePhase(op, pkg.Name, "publish", pkg.Publish); err != nil {
			return err
		}
	}

	for _, pkg := range c.Packages {
		if pkg.DependsOn == "" {
			continue
		}
		if pkg.DependsOn == pkg.Name {
			return cerrors.Newf(cerrors.KindConfig, "%s: package %q depends on itself", op, pkg.Name)
		}
		if !seen[pkg.DependsOn] {
			return cerrors.Newf(cerrors.KindConfig, "%s: package %q depends_on unknown package %q", op, pkg.Name, pkg.DependsOn)
		}
	}

	if c.Clients.ObjectStore.Bucket == "" {
		return cerrors.Newf(cerrors.KindConfig, "%s: clients.object_store.bucket is required", op)
	}

	for tag, rt := range c.ReleaseTypeOverrides {
		switch rt {
		case "rc", "ga", "maintenance", "milestone":
		default:
			return fmt.Errorf("%s: release_type_overrides[%q]: unknown release type %q", op, tag, rt)
		}
	}

	return nil
}

func validatePhase(op, pkgName, phaseName string, phase PhaseConfig) error {
	if phase.Workflow == "" {
		return cerrors.Newf(cerrors.KindConfig, "%s: package %q %s.workflow is required", op, pkgName, phaseName)
	}
	if phase.RefTemplate == "" {
		return cerrors.Newf(cerrors.KindConfig, "%s: package %q %s.ref_template is required", op, pkgName, phaseName)
	}
	return nil
}
