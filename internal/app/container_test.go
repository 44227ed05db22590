package app_test

import (
	"context"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/app"
	"github.com/opsconductor/conductor/internal/clients/workflow"
	"github.com/opsconductor/conductor/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Clients.ObjectStore.Bucket = "releases"
	return cfg
}

func TestNewDryRunSkipsExternalClients(t *testing.T) {
	c, err := app.New(context.Background(), testConfig(), log.New(os.Stderr), true)
	require.NoError(t, err)

	assert.True(t, c.DryRun)
	assert.Nil(t, c.ObjectStore)
	assert.Nil(t, c.Store)
	assert.Nil(t, c.Status)
	_, ok := c.Workflow.(*workflow.DryRunClient)
	assert.True(t, ok)
}

func TestNewWithoutCredentialsFails(t *testing.T) {
	os.Unsetenv("GITHUB_TOKEN")
	_, err := app.New(context.Background(), testConfig(), log.New(os.Stderr), false)
	assert.Error(t, err)
}
