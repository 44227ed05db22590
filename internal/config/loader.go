package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	cerrors "github.com/opsconductor/conductor/internal/errors"
)

// envPrefix is the prefix every environment override must carry, e.g.
// RELEASE_ORCH_CLIENTS_OBJECT_STORE_BUCKET.
const envPrefix = "RELEASE_ORCH"

// Loader loads and merges the YAML configuration file with environment
// overrides via viper.
type Loader struct {
	v          *viper.Viper
	configPath string
}

// NewLoader creates a Loader with RELEASE_ORCH_* environment overrides
// wired in automatically.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// WithConfigPath points the loader at an explicit file; otherwise it
// searches for release.config.yaml in the working directory.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load reads the config file (if any), merges defaults and environment
// overrides, and validates the result.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
	} else {
		l.v.SetConfigName("release.config")
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, cerrors.Wrap(err, cerrors.KindConfig, op, "read config file")
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, cerrors.Wrap(err, cerrors.KindConfig, op, "decode config document")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()
	l.v.SetDefault("clients.workflow.token_env", defaults.Clients.Workflow.TokenEnv)
	l.v.SetDefault("clients.object_store.access_key_env", defaults.Clients.ObjectStore.AccessKeyEnv)
	l.v.SetDefault("clients.object_store.secret_key_env", defaults.Clients.ObjectStore.SecretKeyEnv)
	l.v.SetDefault("clients.object_store.use_ssl", defaults.Clients.ObjectStore.UseSSL)
	l.v.SetDefault("clients.status.token_env", defaults.Clients.Status.TokenEnv)
	l.v.SetDefault("output.color", defaults.Output.Color)
	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
}

// Watch invokes onChange every time the loaded config file is rewritten
// on disk, re-parsing and re-validating it first. No command calls it:
// `release` and `status` each load config once.
func (l *Loader) Watch(onChange func(*Config, error)) error {
	if l.v.ConfigFileUsed() == "" {
		return fmt.Errorf("config: Watch requires a loaded config file")
	}
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := &Config{}
		if err := l.v.Unmarshal(cfg); err != nil {
			onChange(nil, cerrors.Wrap(err, cerrors.KindConfig, "config.Watch", "decode config document"))
			return
		}
		if err := Validate(cfg); err != nil {
			onChange(nil, err)
			return
		}
		onChange(cfg, nil)
	})
	l.v.WatchConfig()
	return nil
}
