package state

import "fmt"

// Validate checks the §3 invariants against the document and returns the
// first violation found, or nil if the document is consistent.
func Validate(s *ReleaseState) error {
	for name, pkg := range s.Packages {
		if err := validatePackage(name, pkg); err != nil {
			return err
		}
	}
	return nil
}

func validatePackage(name string, pkg *PackageState) error {
	// Invariant 1: result=success iff both phases succeeded.
	bothSucceeded := pkg.Build.Status == PhaseSucceeded && pkg.Publish.Status == PhaseSucceeded
	if pkg.Result == ResultSuccess && !bothSucceeded {
		return fmt.Errorf("package %s: result=success but build=%s publish=%s", name, pkg.Build.Status, pkg.Publish.Status)
	}
	if bothSucceeded && pkg.Enabled && pkg.Result != ResultSuccess && pkg.Result != "" {
		// Both phases are succeeded but result hasn't been finalized yet
		// (FinalizePackage hasn't ticked) — only a problem if result was
		// set to something inconsistent, e.g. failed.
		if pkg.Result == ResultFailed {
			return fmt.Errorf("package %s: both phases succeeded but result=failed", name)
		}
	}

	// Invariant 3: every artifact's source_run_id matches the build run,
	// and build must have succeeded for artifacts to exist at all.
	if len(pkg.Artifacts) > 0 {
		if pkg.Build.Status != PhaseSucceeded {
			return fmt.Errorf("package %s: has artifacts but build.status=%s", name, pkg.Build.Status)
		}
		if pkg.Build.Run == nil {
			return fmt.Errorf("package %s: has artifacts but build.run is nil", name)
		}
		for artifactName, artifact := range pkg.Artifacts {
			if artifact.SourceRunID != pkg.Build.Run.ID {
				return fmt.Errorf("package %s: artifact %s source_run_id=%d does not match build.run.id=%d",
					name, artifactName, artifact.SourceRunID, pkg.Build.Run.ID)
			}
		}
	}

	return nil
}

// PackageSucceeded implements invariant 1 as a predicate usable from the
// tree and the renderer.
func PackageSucceeded(pkg *PackageState) bool {
	return pkg.Build.Status == PhaseSucceeded && pkg.Publish.Status == PhaseSucceeded
}
