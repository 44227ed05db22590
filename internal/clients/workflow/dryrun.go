package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DryRunClient is the no-op workflow client activated by --dry-run: it
// never talks to the workflow host. Every dispatch is recorded and
// immediately answered with a synthetically completed, successful run,
// so the release tree converges to success without anyone watching a
// real pipeline.
type DryRunClient struct {
	mu         sync.Mutex
	nextRunID  int64
	Dispatches []DispatchRequest
	runs       map[string]*Run
}

// NewDryRunClient builds an empty dry-run recorder.
func NewDryRunClient() *DryRunClient {
	return &DryRunClient{nextRunID: 900000, runs: make(map[string]*Run)}
}

// Dispatch records the request and mints a synthetic, already-completed
// run for it, keyed by the dispatch uuid so FindRunByDispatchID resolves
// on the very next tick.
func (c *DryRunClient) Dispatch(ctx context.Context, req DispatchRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Dispatches = append(c.Dispatches, req)
	c.nextRunID++
	c.runs[dryRunKey(req.Owner, req.Repo, req.Workflow, req.DispatchID)] = &Run{
		ID:         c.nextRunID,
		URL:        fmt.Sprintf("https://dry-run.invalid/%s/%s/actions/runs/%d", req.Owner, req.Repo, c.nextRunID),
		Status:     "completed",
		Conclusion: "success",
	}
	return nil
}

// FindRunByDispatchID returns the synthetic run minted by Dispatch.
func (c *DryRunClient) FindRunByDispatchID(ctx context.Context, owner, repo, workflowFile, dispatchID string, since time.Time) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[dryRunKey(owner, repo, workflowFile, dispatchID)], nil
}

// FindMostRecentRun is never reached in dry-run mode: FindRunByDispatchID
// always resolves on the first poll, so the correlation fallback has
// nothing to do.
func (c *DryRunClient) FindMostRecentRun(ctx context.Context, owner, repo, workflowFile string, since time.Time) (*Run, error) {
	return nil, nil
}

// GetRun returns the already-completed synthetic run.
func (c *DryRunClient) GetRun(ctx context.Context, owner, repo string, runID int64) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.runs {
		if r.ID == runID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("workflow: dry run: unknown run %d", runID)
}

// ListArtifacts returns one synthetic placeholder artifact so the
// handoff leg of the pipeline has something to hand off.
func (c *DryRunClient) ListArtifacts(ctx context.Context, owner, repo string, runID int64) ([]Artifact, error) {
	return []Artifact{{ID: 1, Name: "dry-run.tgz", SizeBytes: 0}}, nil
}

// DownloadArtifact returns a placeholder URL; nothing is ever fetched.
func (c *DryRunClient) DownloadArtifact(ctx context.Context, owner, repo string, artifactID int64) (string, error) {
	return "https://dry-run.invalid/artifact.tgz", nil
}

func dryRunKey(owner, repo, workflowFile, dispatchID string) string {
	return owner + "/" + repo + "#" + workflowFile + "@" + dispatchID
}
