// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// EnvFilePath overrides the .env file location when set.
	EnvFilePath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

// StaticProvider returns a fixed configuration. It is used by tests and by
// callers that already hold a Config.
type StaticProvider struct {
	Config *Config
}

type fileProvider struct{}

// NewProvider creates a configuration provider reading the CUE file, the
// .env file and the environment.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load returns a copy of the held configuration, or the defaults when none is held.
func (p StaticProvider) Load(ctx context.Context, _ LoadOptions) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Config == nil {
		return DefaultConfig(), nil
	}
	cfg := *p.Config
	return &cfg, nil
}
