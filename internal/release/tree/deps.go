// Package tree assembles the release-domain node library — the leaves
// that dispatch, poll, and finalize a package's build and publish
// phases — into the per-package pipelines rooted at a single release
// goal, per the release tree design.
package tree

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsconductor/conductor/internal/clients/workflow"
	"github.com/opsconductor/conductor/internal/observability"
)

// Deps carries everything a leaf needs that isn't part of the persisted
// state document: the workflow client, a clock and uuid generator (both
// overridable in tests for determinism), and the metrics registry.
type Deps struct {
	Workflow workflow.Client
	Now      func() time.Time
	NewUUID  func() string
	Metrics  *observability.Metrics
}

// DefaultDeps builds a Deps with the real clock and a random uuid
// generator; tests override Now/NewUUID for determinism.
func DefaultDeps(client workflow.Client, metrics *observability.Metrics) Deps {
	return Deps{
		Workflow: client,
		Now:      time.Now,
		NewUUID:  func() string { return uuid.NewString() },
		Metrics:  metrics,
	}
}

// splitRepo splits an "owner/repo" string configured per-package into
// its two parts.
func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("tree: repo %q is not in owner/repo form", repo)
	}
	return parts[0], parts[1], nil
}
