package status

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/opsconductor/conductor/internal/release/state"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// WriteConsole renders doc to w with the same projection Sink posts to
// Slack, styled for a terminal. It is the CLI-facing sink named in the
// dual-rendering design: one projection, two destinations.
func WriteConsole(w io.Writer, doc *state.ReleaseState) {
	order := Order(doc)
	_, rollup := doc.Projection(order)

	text := Render(doc)
	style := pendingStyle
	switch {
	case rollup.Done() && rollup.AnyFailed():
		style = failureStyle
	case rollup.Done():
		style = successStyle
	}
	fmt.Fprint(w, style.Render(text))
}
