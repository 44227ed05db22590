// Package config loads and validates the release-orchestrator's YAML
// configuration: the package fleet, release-type overrides, and client
// endpoints/credentials.
package config

import "time"

// Config is the root configuration document.
type Config struct {
	// Packages is the fleet of downstream package repositories this
	// release drives through build then publish.
	Packages []PackageConfig `mapstructure:"packages" json:"packages"`
	// ReleaseTypeOverrides maps a literal tag to a forced release type,
	// for tags that don't parse cleanly under the derivation rules.
	ReleaseTypeOverrides map[string]string `mapstructure:"release_type_overrides" json:"release_type_overrides,omitempty"`
	// Clients configures the workflow host, object store, and status
	// sink this process talks to.
	Clients ClientsConfig `mapstructure:"clients" json:"clients"`
	// Output configures CLI-facing formatting.
	Output OutputConfig `mapstructure:"output" json:"output"`
}

// PackageConfig describes one downstream package's pipeline.
type PackageConfig struct {
	// Name is the logical package name, e.g. "docker", "debian".
	Name string `mapstructure:"name" json:"name"`
	// Repo is "owner/repo" on the workflow host.
	Repo string `mapstructure:"repo" json:"repo"`
	// Build configures the build phase's workflow dispatch.
	Build PhaseConfig `mapstructure:"build" json:"build"`
	// Publish configures the publish phase's workflow dispatch.
	Publish PhaseConfig `mapstructure:"publish" json:"publish"`
	// DependsOn names another package whose whole pipeline (build and
	// publish) must succeed before this package's build starts.
	DependsOn string `mapstructure:"depends_on" json:"depends_on,omitempty"`
}

// PhaseConfig configures one phase (build or publish) of a package.
type PhaseConfig struct {
	// Workflow is the workflow file name to dispatch, e.g. "build.yml".
	Workflow string `mapstructure:"workflow" json:"workflow"`
	// RefTemplate is the source ref to dispatch against, after
	// substituting {tag}/{release_type}.
	RefTemplate string `mapstructure:"ref_template" json:"ref_template"`
	// InputsTemplate is the raw input map passed to the dispatch, every
	// value substituted for {tag}/{release_type}/{artifact_url[name]}.
	InputsTemplate map[string]string `mapstructure:"inputs_template" json:"inputs_template,omitempty"`
	// Timeout bounds how long the phase may stay running before the
	// tree gives up on it.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// ArtifactsWhitelist restricts which build artifacts are collected
	// for handoff into publish; an empty list collects everything.
	ArtifactsWhitelist []string `mapstructure:"artifacts_whitelist" json:"artifacts_whitelist,omitempty"`
}

// ClientsConfig configures the three external services the clients layer
// talks to. Credentials are read from the environment, never from the
// config file.
type ClientsConfig struct {
	Workflow    WorkflowClientConfig    `mapstructure:"workflow" json:"workflow"`
	ObjectStore ObjectStoreClientConfig `mapstructure:"object_store" json:"object_store"`
	Status      StatusClientConfig      `mapstructure:"status" json:"status"`
}

// WorkflowClientConfig configures the workflow-host adapter.
type WorkflowClientConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`
	// TokenEnv names the environment variable holding the workflow-host
	// token; defaults to GITHUB_TOKEN.
	TokenEnv string `mapstructure:"token_env" json:"token_env,omitempty"`
}

// ObjectStoreClientConfig configures the S3-compatible object store.
type ObjectStoreClientConfig struct {
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	Bucket   string `mapstructure:"bucket" json:"bucket"`
	UseSSL   bool   `mapstructure:"use_ssl" json:"use_ssl"`
	// AccessKeyEnv / SecretKeyEnv name the environment variables holding
	// credentials.
	AccessKeyEnv string `mapstructure:"access_key_env" json:"access_key_env,omitempty"`
	SecretKeyEnv string `mapstructure:"secret_key_env" json:"secret_key_env,omitempty"`
}

// StatusClientConfig configures the status sink.
type StatusClientConfig struct {
	Channel string `mapstructure:"channel" json:"channel"`
	// TokenEnv names the environment variable holding the bot token;
	// defaults to SLACK_BOT_TOKEN.
	TokenEnv string `mapstructure:"token_env" json:"token_env,omitempty"`
}

// OutputConfig configures CLI rendering.
type OutputConfig struct {
	Color    bool   `mapstructure:"color" json:"color"`
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	JSON     bool   `mapstructure:"json" json:"json"`
}

// DefaultConfig returns the zero-value defaults applied before a config
// file and environment overrides are merged in.
func DefaultConfig() *Config {
	return &Config{
		Clients: ClientsConfig{
			Workflow: WorkflowClientConfig{TokenEnv: "GITHUB_TOKEN"},
			ObjectStore: ObjectStoreClientConfig{
				AccessKeyEnv: "OBJECT_STORE_ACCESS_KEY",
				SecretKeyEnv: "OBJECT_STORE_SECRET_KEY",
				UseSSL:       true,
			},
			Status: StatusClientConfig{TokenEnv: "SLACK_BOT_TOKEN"},
		},
		Output: OutputConfig{
			Color:    true,
			LogLevel: "info",
		},
	}
}

// PackageNames returns the configured package names in declaration order.
func (c *Config) PackageNames() []string {
	names := make([]string, len(c.Packages))
	for i, p := range c.Packages {
		names[i] = p.Name
	}
	return names
}

// FindPackage returns the configured package named name, or nil.
func (c *Config) FindPackage(name string) *PackageConfig {
	for i := range c.Packages {
		if c.Packages[i].Name == name {
			return &c.Packages[i]
		}
	}
	return nil
}
