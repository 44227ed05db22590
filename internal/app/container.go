// Package app wires the dependency-injection container threaded through
// the CLI and the lifecycle controller: configuration, the logger, and
// the three external clients (workflow, object store, status), built
// once at startup per the design notes' "no process globals but the
// logger" rule.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/opsconductor/conductor/internal/clients/objectstore"
	statusclient "github.com/opsconductor/conductor/internal/clients/status"
	"github.com/opsconductor/conductor/internal/clients/workflow"
	"github.com/opsconductor/conductor/internal/config"
	"github.com/opsconductor/conductor/internal/observability"
	"github.com/opsconductor/conductor/internal/release/store"
)

// Container holds every dependency a command needs: configuration, the
// process-wide logger, the metrics registry, the three clients, and the
// state store built over the object-store client. Under --dry-run, Store
// and ObjectStore are left nil and Workflow is the recording no-op
// variant; the controller checks DryRun rather than nil-guard every
// field, but nil-safety is kept anyway since the status sink already
// treats a nil client as a no-op.
type Container struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *observability.Metrics

	Workflow    workflow.Client
	ObjectStore objectstore.Client
	Status      statusclient.Client
	Store       *store.Store

	DryRun bool
}

// New builds a Container from a loaded configuration. Credentials are
// read from the environment variables named in cfg.Clients; dry-run
// skips every external client except the workflow recorder, per the
// resolved dry-run-persistence open question.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, dryRun bool) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.New(),
		DryRun:  dryRun,
	}

	if dryRun {
		c.Workflow = workflow.NewDryRunClient()
		logger.Debug("dry run: wired recording workflow client, skipping object store and status clients")
		return c, nil
	}

	wfClient, err := BuildWorkflowClient(ctx, cfg.Clients.Workflow)
	if err != nil {
		return nil, fmt.Errorf("app: build workflow client: %w", err)
	}
	c.Workflow = wfClient

	osClient, err := BuildObjectStoreClient(ctx, cfg.Clients.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("app: build object store client: %w", err)
	}
	c.ObjectStore = osClient
	c.Store = store.New(osClient)

	c.Status = BuildStatusClient(logger, cfg.Clients.Status)

	return c, nil
}

// BuildWorkflowClient builds the GitHub Actions workflow client from the
// token named in cfg. New is its only caller; the `status` command needs
// only the object store and builds it with BuildObjectStoreClient.
func BuildWorkflowClient(ctx context.Context, cfg config.WorkflowClientConfig) (workflow.Client, error) {
	tokenEnv := cfg.TokenEnv
	if tokenEnv == "" {
		tokenEnv = "GITHUB_TOKEN"
	}
	token := os.Getenv(tokenEnv)
	if token == "" {
		return nil, fmt.Errorf("app: environment variable %s is required for the workflow client", tokenEnv)
	}

	ghCfg := workflow.DefaultGitHubClientConfig(token)
	ghCfg.BaseURL = cfg.BaseURL
	return workflow.NewGitHubClient(ctx, ghCfg)
}

// BuildObjectStoreClient builds the S3-compatible object store client from
// the credentials named in cfg.
func BuildObjectStoreClient(ctx context.Context, cfg config.ObjectStoreClientConfig) (objectstore.Client, error) {
	accessEnv := cfg.AccessKeyEnv
	if accessEnv == "" {
		accessEnv = "OBJECT_STORE_ACCESS_KEY"
	}
	secretEnv := cfg.SecretKeyEnv
	if secretEnv == "" {
		secretEnv = "OBJECT_STORE_SECRET_KEY"
	}
	accessKey := os.Getenv(accessEnv)
	secretKey := os.Getenv(secretEnv)
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("app: environment variables %s and %s are required for the object store client", accessEnv, secretEnv)
	}

	return objectstore.NewMinioClient(ctx, objectstore.Config{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		Bucket:          cfg.Bucket,
		UseSSL:          cfg.UseSSL,
	})
}

// BuildStatusClient returns nil (a no-op sink) if no channel or token is
// configured; posting release progress to a chat channel is an optional
// convenience, not a hard requirement for the release to proceed.
func BuildStatusClient(logger *log.Logger, cfg config.StatusClientConfig) statusclient.Client {
	if cfg.Channel == "" {
		return nil
	}
	tokenEnv := cfg.TokenEnv
	if tokenEnv == "" {
		tokenEnv = "SLACK_BOT_TOKEN"
	}
	token := os.Getenv(tokenEnv)
	if token == "" {
		logger.Warn("status sink disabled: environment variable not set", "env", tokenEnv)
		return nil
	}
	return statusclient.NewSlackClient(token)
}
