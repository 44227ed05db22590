package state

// PackageSummary is the read-only projection of one package used by the
// status renderer; it never exposes ephemeral fields.
type PackageSummary struct {
	Name           string
	BuildStatus    PhaseStatus
	PublishStatus  PhaseStatus
	Result         PackageResult
	BlockingReason string
}

// Rollup is the overall roll-up across the projected packages; a
// disabled package counts toward Total and Skipped.
type Rollup struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Pending   int
}

// Done reports whether every enabled package has reached a terminal
// result.
func (r Rollup) Done() bool {
	return r.Pending == 0
}

// AnyFailed reports whether at least one package failed.
func (r Rollup) AnyFailed() bool {
	return r.Failed > 0
}

// Projection computes the per-package summaries in the order given by
// order (names absent from the document are skipped) plus the overall
// roll-up.
func (s *ReleaseState) Projection(order []string) ([]PackageSummary, Rollup) {
	summaries := make([]PackageSummary, 0, len(order))
	var rollup Rollup

	for _, name := range order {
		pkg, ok := s.Packages[name]
		if !ok {
			continue
		}
		if !pkg.Enabled {
			summaries = append(summaries, PackageSummary{
				Name:          name,
				BuildStatus:   PhaseNotStarted,
				PublishStatus: PhaseNotStarted,
				Result:        ResultSkipped,
			})
			rollup.Total++
			rollup.Skipped++
			continue
		}

		summary := PackageSummary{
			Name:          name,
			BuildStatus:   pkg.Build.Status,
			PublishStatus: pkg.Publish.Status,
			Result:        pkg.Result,
		}
		if pkg.Result == ResultFailed {
			summary.BlockingReason = blockingReason(pkg)
		}
		summaries = append(summaries, summary)

		rollup.Total++
		switch pkg.Result {
		case ResultSuccess:
			rollup.Succeeded++
		case ResultFailed:
			rollup.Failed++
		case ResultSkipped:
			rollup.Skipped++
		default:
			rollup.Pending++
		}
	}

	return summaries, rollup
}

func blockingReason(pkg *PackageState) string {
	if pkg.Build.Status == PhaseFailed || pkg.Build.Status == PhaseTimedOut || pkg.Build.Status == PhaseCancelled {
		return "build " + string(pkg.Build.Status)
	}
	if pkg.Publish.Status == PhaseFailed || pkg.Publish.Status == PhaseTimedOut || pkg.Publish.Status == PhaseCancelled {
		return "publish " + string(pkg.Publish.Status)
	}
	return ""
}
