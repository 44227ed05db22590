package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// GitHubClient dispatches and polls GitHub Actions workflow runs, wrapping
// every call in a retry policy tuned for transient API flakiness.
type GitHubClient struct {
	gh      *github.Client
	retrier retry.Retry[any]
}

// GitHubClientConfig configures the retry budget around the underlying API
// calls.
type GitHubClientConfig struct {
	Token        string
	BaseURL      string
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultGitHubClientConfig mirrors the client-layer retry policy: up to
// five attempts with exponential backoff and jitter.
func DefaultGitHubClientConfig(token string) GitHubClientConfig {
	return GitHubClientConfig{
		Token:        token,
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
	}
}

// NewGitHubClient builds a workflow.Client backed by go-github.
func NewGitHubClient(ctx context.Context, cfg GitHubClientConfig) (*GitHubClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("workflow: github token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	gh := github.NewClient(tc)
	if cfg.BaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("workflow: configure enterprise base url: %w", err)
		}
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}

	retrier := retry.New[any](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffPolicy: retry.BackoffExponential,
		Multiplier:    2.0,
		Jitter:        true,
		IsRetryable:   isRetryableAPIError,
	})

	return &GitHubClient{gh: gh, retrier: retrier}, nil
}

func isRetryableAPIError(err error) bool {
	if err == nil {
		return false
	}
	var rateLimitErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateLimitErr) || errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if code := respErr.Response.StatusCode; code >= 500 || code == 429 {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, transient := range []string{"timeout", "connection reset", "temporary", "502", "503", "504"} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

func (c *GitHubClient) do(ctx context.Context, op func(context.Context) (any, error)) (any, error) {
	return c.retrier.Do(ctx, op)
}

// Dispatch triggers a workflow_dispatch event. The dispatch id is passed
// through as a client_payload-style input so the run can later be
// correlated back via FindRunByDispatchID.
func (c *GitHubClient) Dispatch(ctx context.Context, req DispatchRequest) error {
	inputs := make(map[string]interface{}, len(req.Inputs)+1)
	for k, v := range req.Inputs {
		inputs[k] = v
	}
	if req.DispatchID != "" {
		inputs["workflow_uuid"] = req.DispatchID
	}

	_, err := c.do(ctx, func(ctx context.Context) (any, error) {
		_, err := c.gh.Actions.CreateWorkflowDispatchEventByFileName(ctx, req.Owner, req.Repo, req.Workflow, github.CreateWorkflowDispatchEventRequest{
			Ref:    req.Ref,
			Inputs: inputs,
		})
		return nil, err
	})
	return err
}

// FindRunByDispatchID scans recent runs of the workflow created at or
// after `since`, looking for one whose display title or run name embeds
// dispatchID. GitHub does not echo workflow_dispatch inputs back onto the
// run object, so this is a best-effort correlation: callers fall back to
// the newest run created since the dispatch (FindMostRecentRun) when it
// returns nil.
func (c *GitHubClient) FindRunByDispatchID(ctx context.Context, owner, repo, workflowFile, dispatchID string, since time.Time) (*Run, error) {
	runs, err := c.listRunsSince(ctx, owner, repo, workflowFile, since)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if strings.Contains(r.GetDisplayTitle(), dispatchID) || strings.Contains(r.GetName(), dispatchID) {
			return toRun(r), nil
		}
	}
	return nil, nil
}

// FindMostRecentRun implements the timestamp fallback: the newest run of
// workflowFile created since the dispatch, regardless of what its title
// says or which actor triggered it. ListWorkflowRunsByFileName already returns runs newest
// first, so the fallback is just "take the first one".
func (c *GitHubClient) FindMostRecentRun(ctx context.Context, owner, repo, workflowFile string, since time.Time) (*Run, error) {
	runs, err := c.listRunsSince(ctx, owner, repo, workflowFile, since)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return toRun(runs[0]), nil
}

func (c *GitHubClient) listRunsSince(ctx context.Context, owner, repo, workflowFile string, since time.Time) ([]*github.WorkflowRun, error) {
	result, err := c.do(ctx, func(ctx context.Context) (any, error) {
		runs, _, err := c.gh.Actions.ListWorkflowRunsByFileName(ctx, owner, repo, workflowFile, &github.ListWorkflowRunsOptions{
			Created:     ">=" + since.UTC().Format("2006-01-02T15:04:05Z"),
			ListOptions: github.ListOptions{PerPage: 30},
		})
		return runs, err
	})
	if err != nil {
		return nil, err
	}
	runs, _ := result.(*github.WorkflowRuns)
	if runs == nil {
		return nil, nil
	}
	return runs.WorkflowRuns, nil
}

// GetRun fetches the current status of a known run.
func (c *GitHubClient) GetRun(ctx context.Context, owner, repo string, runID int64) (*Run, error) {
	result, err := c.do(ctx, func(ctx context.Context) (any, error) {
		run, _, err := c.gh.Actions.GetWorkflowRunByID(ctx, owner, repo, runID)
		return run, err
	})
	if err != nil {
		return nil, err
	}
	return toRun(result.(*github.WorkflowRun)), nil
}

// ListArtifacts lists every artifact produced by a run.
func (c *GitHubClient) ListArtifacts(ctx context.Context, owner, repo string, runID int64) ([]Artifact, error) {
	result, err := c.do(ctx, func(ctx context.Context) (any, error) {
		list, _, err := c.gh.Actions.ListWorkflowRunArtifacts(ctx, owner, repo, runID, &github.ListOptions{PerPage: 100})
		return list, err
	})
	if err != nil {
		return nil, err
	}
	list := result.(*github.ArtifactList)
	artifacts := make([]Artifact, 0, len(list.Artifacts))
	for _, a := range list.Artifacts {
		artifacts = append(artifacts, Artifact{
			ID:        a.GetID(),
			Name:      a.GetName(),
			SizeBytes: a.GetSizeInBytes(),
		})
	}
	return artifacts, nil
}

// DownloadArtifact returns a short-lived download URL for an artifact.
func (c *GitHubClient) DownloadArtifact(ctx context.Context, owner, repo string, artifactID int64) (string, error) {
	result, err := c.do(ctx, func(ctx context.Context) (any, error) {
		downloadURL, _, err := c.gh.Actions.DownloadArtifact(ctx, owner, repo, artifactID, 3)
		return downloadURL, err
	})
	if err != nil {
		return "", err
	}
	downloadURL, ok := result.(*url.URL)
	if !ok || downloadURL == nil {
		return "", fmt.Errorf("workflow: unexpected download response type")
	}
	return downloadURL.String(), nil
}

func toRun(r *github.WorkflowRun) *Run {
	run := &Run{
		ID:         r.GetID(),
		URL:        r.GetHTMLURL(),
		Status:     r.GetStatus(),
		Conclusion: r.GetConclusion(),
	}
	if r.RunStartedAt != nil {
		t := r.RunStartedAt.Time
		run.StartedAt = &t
	}
	if r.UpdatedAt != nil {
		t := r.UpdatedAt.Time
		run.UpdatedAt = &t
	}
	return run
}
