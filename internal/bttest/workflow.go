// Package bttest provides scripted fake clients for the behavior-tree
// leaf contract tests and the end-to-end controller tests: a
// FakeWorkflowClient, FakeObjectStore, and FakeStatusClient, each driven
// by a queue of canned responses instead of a live network call.
package bttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opsconductor/conductor/internal/clients/workflow"
)

// DispatchRecord captures one Dispatch call for assertions.
type DispatchRecord struct {
	Req workflow.DispatchRequest
	At  time.Time
}

// DispatchScript is the canned behavior for one repo+workflow pair's
// dispatch and correlation calls.
type DispatchScript struct {
	// DispatchErr is returned by every Dispatch call against this
	// workflow, if set.
	DispatchErr error
	// FindResults is consumed one at a time by successive
	// FindRunByDispatchID calls; the last element repeats once
	// exhausted. A nil entry means "not found yet".
	FindResults []*workflow.Run
	// FallbackResult is returned by FindMostRecentRun, simulating the
	// newest-run-since-dispatch correlation fallback a real workflow host
	// needs when the uuid never shows up in a listable field.
	FallbackResult *workflow.Run
}

// RunScript is the canned behavior for one already-known run id.
type RunScript struct {
	// GetRunResults is consumed one at a time by successive GetRun
	// calls; the last element repeats once exhausted.
	GetRunResults []*workflow.Run
	// GetRunErr, if set, is returned by every GetRun call instead of a
	// result.
	GetRunErr error
	// Artifacts is returned by ListArtifacts for this run.
	Artifacts []workflow.Artifact
}

// FakeWorkflowClient is a scripted workflow.Client. Tests populate
// DispatchScripts/RunScripts before ticking the tree; call counts are
// observable via Dispatches for assertions.
type FakeWorkflowClient struct {
	mu              sync.Mutex
	DispatchScripts map[string]*DispatchScript
	RunScripts      map[int64]*RunScript

	Dispatches []DispatchRecord

	findCalls   map[string]int
	getRunCalls map[int64]int
}

// NewFakeWorkflowClient builds an empty fake; call ScriptDispatch/ScriptRun
// to register canned responses before use.
func NewFakeWorkflowClient() *FakeWorkflowClient {
	return &FakeWorkflowClient{
		DispatchScripts: make(map[string]*DispatchScript),
		RunScripts:      make(map[int64]*RunScript),
		findCalls:       make(map[string]int),
		getRunCalls:     make(map[int64]int),
	}
}

func scriptKey(owner, repo, workflowFile string) string {
	return owner + "/" + repo + "#" + workflowFile
}

// ScriptDispatch registers the canned dispatch/correlation behavior for a
// repo's workflow file.
func (f *FakeWorkflowClient) ScriptDispatch(owner, repo, workflowFile string, s *DispatchScript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DispatchScripts[scriptKey(owner, repo, workflowFile)] = s
}

// ScriptRun registers the canned GetRun/ListArtifacts behavior for a
// known run id.
func (f *FakeWorkflowClient) ScriptRun(runID int64, s *RunScript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RunScripts[runID] = s
}

// Dispatch records the call and returns the scripted error, if any.
func (f *FakeWorkflowClient) Dispatch(ctx context.Context, req workflow.DispatchRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Dispatches = append(f.Dispatches, DispatchRecord{Req: req, At: time.Now()})

	s := f.DispatchScripts[scriptKey(req.Owner, req.Repo, req.Workflow)]
	if s != nil {
		return s.DispatchErr
	}
	return nil
}

// FindRunByDispatchID returns the next scripted find result.
func (f *FakeWorkflowClient) FindRunByDispatchID(ctx context.Context, owner, repo, workflowFile, dispatchID string, since time.Time) (*workflow.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := scriptKey(owner, repo, workflowFile)
	s := f.DispatchScripts[key]
	if s == nil || len(s.FindResults) == 0 {
		return nil, nil
	}

	idx := f.findCalls[key]
	if idx >= len(s.FindResults) {
		idx = len(s.FindResults) - 1
	}
	f.findCalls[key] = idx + 1
	return s.FindResults[idx], nil
}

// FindMostRecentRun returns the scripted fallback result, simulating the
// newest-run-since-dispatch correlation path.
func (f *FakeWorkflowClient) FindMostRecentRun(ctx context.Context, owner, repo, workflowFile string, since time.Time) (*workflow.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.DispatchScripts[scriptKey(owner, repo, workflowFile)]
	if s == nil {
		return nil, nil
	}
	return s.FallbackResult, nil
}

// GetRun returns the next scripted status for the run, or the scripted
// error.
func (f *FakeWorkflowClient) GetRun(ctx context.Context, owner, repo string, runID int64) (*workflow.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.RunScripts[runID]
	if s == nil {
		return nil, fmt.Errorf("bttest: no RunScript registered for run %d", runID)
	}
	if s.GetRunErr != nil {
		return nil, s.GetRunErr
	}
	if len(s.GetRunResults) == 0 {
		return nil, fmt.Errorf("bttest: RunScript for run %d has no GetRunResults", runID)
	}

	idx := f.getRunCalls[runID]
	if idx >= len(s.GetRunResults) {
		idx = len(s.GetRunResults) - 1
	}
	f.getRunCalls[runID] = idx + 1
	return s.GetRunResults[idx], nil
}

// ListArtifacts returns the scripted artifact list for a known run.
func (f *FakeWorkflowClient) ListArtifacts(ctx context.Context, owner, repo string, runID int64) ([]workflow.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.RunScripts[runID]
	if s == nil {
		return nil, nil
	}
	return s.Artifacts, nil
}

// DownloadArtifact returns a synthetic URL for the artifact id.
func (f *FakeWorkflowClient) DownloadArtifact(ctx context.Context, owner, repo string, artifactID int64) (string, error) {
	return fmt.Sprintf("https://fake-artifacts.example/%s/%s/%d", owner, repo, artifactID), nil
}
