package state

// ResetSelector chooses the scope of a force-rebuild: every package, or
// one named package.
type ResetSelector struct {
	All     bool
	Package string
}

// AllSelector returns a selector matching every package.
func AllSelector() ResetSelector { return ResetSelector{All: true} }

// PackageSelector returns a selector matching a single named package.
func PackageSelector(name string) ResetSelector { return ResetSelector{Package: name} }

// ResetPackage resets one package's build, publish, artifacts and result
// to defaults, bumping each phase's attempt counter. It leaves every
// other package untouched (force-rebuild scoping law).
func (s *ReleaseState) ResetPackage(name string) {
	pkg, ok := s.Packages[name]
	if !ok {
		return
	}
	pkg.Build.Reset()
	pkg.Publish.Reset()
	pkg.Artifacts = nil
	pkg.Result = ResultPending
	s.MarkDirty()
}

// Apply resets the packages matched by the selector. Applying `All`
// resets every currently-known package in place; the document itself is
// kept, and Store.Reset saves it back rather than deleting the stored
// object.
func (s *ReleaseState) Apply(sel ResetSelector) {
	if sel.All {
		for name := range s.Packages {
			s.ResetPackage(name)
		}
		return
	}
	if sel.Package != "" {
		s.ResetPackage(sel.Package)
	}
}
