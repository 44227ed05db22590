// Package workflow wraps the CI workflow-dispatch API behind a small port
// so the tree leaves never talk to go-github directly.
package workflow

import (
	"context"
	"time"

	"github.com/opsconductor/conductor/internal/release/state"
)

// DispatchRequest describes one workflow dispatch.
type DispatchRequest struct {
	Owner      string
	Repo       string
	Workflow   string
	Ref        string
	Inputs     map[string]string
	DispatchID string
}

// Run is the client's own run handle, decoupled from go-github's types.
type Run struct {
	ID         int64
	URL        string
	Status     string
	Conclusion string
	StartedAt  *time.Time
	UpdatedAt  *time.Time
}

// Artifact is a downloadable workflow-run artifact. DownloadURL, when
// ListArtifacts populates it at all, is not guaranteed to still be valid
// by the time a caller gets around to fetching it — callers that need to
// actually fetch the bytes should mint a fresh one via DownloadArtifact
// keyed on ID instead.
type Artifact struct {
	ID          int64
	Name        string
	DownloadURL string
	SizeBytes   int64
}

// Client is the port the release tree dispatches and polls workflow runs
// through. Adapters (the go-github-backed implementation, or
// internal/bttest's fake) satisfy this interface.
type Client interface {
	// Dispatch triggers a workflow run and returns no run handle — the
	// dispatch API does not hand one back. Callers correlate the run
	// afterward via FindRunByDispatchID.
	Dispatch(ctx context.Context, req DispatchRequest) error
	// FindRunByDispatchID searches recent runs of a workflow for one
	// whose inputs or job name carries dispatchID. It returns nil, nil
	// if no matching run has appeared yet.
	FindRunByDispatchID(ctx context.Context, owner, repo, workflow, dispatchID string, since time.Time) (*Run, error)
	// FindMostRecentRun returns the most recently created run of a
	// workflow file since the given timestamp, or nil if none exists
	// yet. It is the fallback correlation strategy used once a bounded
	// number of FindRunByDispatchID polls fail to turn up a uuid match —
	// the upstream dispatch API never echoes inputs back onto the run
	// object, so the run we want is, absent a better signal, simply the
	// newest one of this workflow file created after we dispatched it.
	FindMostRecentRun(ctx context.Context, owner, repo, workflow string, since time.Time) (*Run, error)
	// GetRun fetches the current status of a known run.
	GetRun(ctx context.Context, owner, repo string, runID int64) (*Run, error)
	// ListArtifacts lists every artifact produced by a run.
	ListArtifacts(ctx context.Context, owner, repo string, runID int64) ([]Artifact, error)
	// DownloadArtifact returns a short-lived URL for an artifact's zip.
	DownloadArtifact(ctx context.Context, owner, repo string, artifactID int64) (string, error)
}

// ToWorkflowRun adapts the client's Run into the persisted state shape.
func ToWorkflowRun(r *Run) *state.WorkflowRun {
	if r == nil {
		return nil
	}
	return &state.WorkflowRun{
		ID:         r.ID,
		URL:        r.URL,
		Conclusion: r.Conclusion,
		StartedAt:  r.StartedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// IsRunning reports whether a run's status means "still executing" in the
// upstream CI system's vocabulary.
func IsRunning(status string) bool {
	switch status {
	case "queued", "in_progress", "waiting", "requested", "pending":
		return true
	default:
		return false
	}
}
