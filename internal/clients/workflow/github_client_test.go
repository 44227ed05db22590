package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsconductor/conductor/internal/clients/workflow"
)

func TestNewGitHubClientRequiresToken(t *testing.T) {
	_, err := workflow.NewGitHubClient(context.Background(), workflow.GitHubClientConfig{})
	assert.Error(t, err)
}

func TestDefaultGitHubClientConfigHasFiveAttemptBudget(t *testing.T) {
	cfg := workflow.DefaultGitHubClientConfig("tok")
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, "tok", cfg.Token)
}

func TestIsRunningVocabulary(t *testing.T) {
	assert.True(t, workflow.IsRunning("queued"))
	assert.True(t, workflow.IsRunning("in_progress"))
	assert.False(t, workflow.IsRunning("completed"))
}

func TestToWorkflowRunHandlesNil(t *testing.T) {
	assert.Nil(t, workflow.ToWorkflowRun(nil))
}

func TestToWorkflowRunMapsFields(t *testing.T) {
	run := workflow.ToWorkflowRun(&workflow.Run{ID: 42, URL: "https://example.test/run/42", Conclusion: "success"})
	assert.Equal(t, int64(42), run.ID)
	assert.Equal(t, "success", run.Conclusion)
}
