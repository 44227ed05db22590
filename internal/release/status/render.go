// Package status projects release state into a human-readable rendering
// and keeps a pinned status message in sync with it, mirroring the
// slack-go message-update pattern the rest of the pack uses for
// long-lived progress notifications.
package status

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opsconductor/conductor/internal/release/state"
)

// glyph is the single-character status indicator for a phase.
func glyph(status state.PhaseStatus) string {
	switch status {
	case state.PhaseSucceeded:
		return "✓"
	case state.PhaseFailed, state.PhaseTimedOut, state.PhaseCancelled:
		return "✗"
	case state.PhaseInProgress, state.PhaseTriggered:
		return "…"
	default:
		return "·"
	}
}

func resultGlyph(result state.PackageResult) string {
	switch result {
	case state.ResultSuccess:
		return "✓"
	case state.ResultFailed:
		return "✗"
	case state.ResultSkipped:
		return "–"
	default:
		return "…"
	}
}

// Order returns the configured package names in a fixed, deterministic
// (lexicographic) order, independent of map iteration, for Render and
// the underlying Projection call.
func Order(doc *state.ReleaseState) []string {
	names := make([]string, 0, len(doc.Packages))
	for name := range doc.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render builds the plain-text rendering of a release's current state,
// including a link to each phase's run once one is known. It is a pure
// function of doc, so the same input always produces byte-identical
// output — the diff-before-update check in Sink relies on that.
func Render(doc *state.ReleaseState) string {
	order := Order(doc)
	summaries, rollup := doc.Projection(order)

	var b strings.Builder
	fmt.Fprintf(&b, "Release %s (%s): %d/%d packages done\n", doc.Tag, doc.ReleaseType, rollup.Succeeded+rollup.Failed+rollup.Skipped, rollup.Total)

	for _, s := range summaries {
		pkg := doc.Packages[s.Name]
		fmt.Fprintf(&b, "%s %-16s build %s%s  publish %s%s",
			resultGlyph(s.Result), s.Name,
			glyph(s.BuildStatus), runLink(pkg.Build.Run),
			glyph(s.PublishStatus), runLink(pkg.Publish.Run),
		)
		if s.BlockingReason != "" {
			fmt.Fprintf(&b, "  (%s)", s.BlockingReason)
		}
		b.WriteByte('\n')
	}

	switch {
	case rollup.Done() && rollup.AnyFailed():
		b.WriteString("Result: FAILED\n")
	case rollup.Done():
		b.WriteString("Result: SUCCESS\n")
	default:
		b.WriteString("Result: in progress\n")
	}

	return b.String()
}

func runLink(run *state.WorkflowRun) string {
	if run == nil || run.URL == "" {
		return ""
	}
	return " <" + run.URL + ">"
}
