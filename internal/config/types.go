// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/melonpatch/melonpatch/internal/fetch"
	"github.com/melonpatch/melonpatch/internal/logging"
	"github.com/melonpatch/melonpatch/pkg/inject"
	"github.com/melonpatch/melonpatch/pkg/layout"
	"github.com/melonpatch/melonpatch/pkg/validate"

	"github.com/pelletier/go-toml/v2"
)

// Variant choices accepted by default_variant and the --variant flag.
const (
	VariantModern = "modern"
	VariantLegacy = "legacy"
	VariantAuto   = "auto"
)

const (
	// DefaultAsset is the release asset downloaded when none is configured.
	DefaultAsset = "MelonLoader.x64.zip"
	// DefaultBackupsKeep is how many mod backups survive a cleanup.
	DefaultBackupsKeep = 5
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// InvalidConfigError is returned by Validate when one or more fields are
	// out of range. It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// RootDir is the directory holding one subtree per game.
		RootDir string `json:"root_dir" toml:"root_dir" mapstructure:"root_dir"`
		// StorageDir is where legacy flat mods/ and logs/ directories live.
		// Empty means the parent of RootDir.
		StorageDir string `json:"storage_dir" toml:"storage_dir" mapstructure:"storage_dir"`
		// DefaultGame is the package identifier used when --game is not given.
		DefaultGame layout.PackageID `json:"default_game" toml:"default_game" mapstructure:"default_game"`
		// DefaultVariant is "modern", "legacy" or "auto".
		DefaultVariant string `json:"default_variant" toml:"default_variant" mapstructure:"default_variant"`

		Inject     InjectConfig     `json:"inject" toml:"inject" mapstructure:"inject"`
		Validation ValidationConfig `json:"validation" toml:"validation" mapstructure:"validation"`
		Download   DownloadConfig   `json:"download" toml:"download" mapstructure:"download"`
		Backups    BackupsConfig    `json:"backups" toml:"backups" mapstructure:"backups"`
		Log        LogConfig        `json:"log" toml:"log" mapstructure:"log"`
		Metrics    MetricsConfig    `json:"metrics" toml:"metrics" mapstructure:"metrics"`
	}

	// InjectConfig configures the injected native library directory and the
	// manifest written into patched packages.
	InjectConfig struct {
		ABI           string `json:"abi" toml:"abi" mapstructure:"abi"`
		LoaderVersion string `json:"loader_version" toml:"loader_version" mapstructure:"loader_version"`
		GameName      string `json:"game_name" toml:"game_name" mapstructure:"game_name"`
		InjectedBy    string `json:"injected_by" toml:"injected_by" mapstructure:"injected_by"`
	}

	// ValidationConfig overrides the installation validator's requirements.
	// Empty lists keep the built-in file lists.
	ValidationConfig struct {
		Threshold       float64  `json:"threshold" toml:"threshold" mapstructure:"threshold"`
		ModernRequired  []string `json:"modern_required" toml:"modern_required" mapstructure:"modern_required"`
		LegacyRequired  []string `json:"legacy_required" toml:"legacy_required" mapstructure:"legacy_required"`
		SupportRequired []string `json:"support_required" toml:"support_required" mapstructure:"support_required"`
	}

	// DownloadConfig selects where loader archives are downloaded from.
	// A non-empty URL is used as is; otherwise the archive is resolved from
	// the GitHub releases of Repo.
	DownloadConfig struct {
		URL     string `json:"url" toml:"url" mapstructure:"url"`
		Repo    string `json:"repo" toml:"repo" mapstructure:"repo"`
		Tag     string `json:"tag" toml:"tag" mapstructure:"tag"`
		Asset   string `json:"asset" toml:"asset" mapstructure:"asset"`
		SHA256  string `json:"sha256" toml:"sha256" mapstructure:"sha256"`
		Token   string `json:"token" toml:"token" mapstructure:"token"`
		Timeout string `json:"timeout" toml:"timeout" mapstructure:"timeout"`
	}

	// BackupsConfig controls mod backup retention.
	BackupsConfig struct {
		Keep int `json:"keep" toml:"keep" mapstructure:"keep"`
	}

	// LogConfig sets the log level.
	LogConfig struct {
		Level string `json:"level" toml:"level" mapstructure:"level"`
	}

	// MetricsConfig enables the node-exporter textfile dump when Textfile is set.
	MetricsConfig struct {
		Textfile string `json:"textfile" toml:"textfile" mapstructure:"textfile"`
	}
)

// DefaultConfig returns the default configuration.
// RootDir falls back to a relative path when the user data directory cannot
// be determined.
func DefaultConfig() *Config {
	root, err := DataDir()
	if err != nil {
		root = AppName
	}
	req := validate.DefaultRequirements()
	man := inject.DefaultManifest()

	return &Config{
		RootDir:        root,
		DefaultGame:    layout.DefaultPackage,
		DefaultVariant: VariantModern,
		Inject: InjectConfig{
			ABI:           inject.DefaultABI,
			LoaderVersion: man.Version,
			GameName:      man.Game,
			InjectedBy:    man.InjectedBy,
		},
		Validation: ValidationConfig{
			Threshold:       req.Threshold,
			ModernRequired:  req.Modern,
			LegacyRequired:  req.Legacy,
			SupportRequired: req.Support,
		},
		Download: DownloadConfig{
			Repo:    fetch.DefaultOwner + "/" + fetch.DefaultRepo,
			Asset:   DefaultAsset,
			Timeout: fetch.DefaultTimeout.String(),
		},
		Backups: BackupsConfig{Keep: DefaultBackupsKeep},
		Log:     LogConfig{Level: logging.DefaultLevel},
	}
}

// Storage returns StorageDir, or the parent of RootDir when it is empty.
func (c *Config) Storage() string {
	if c.StorageDir != "" {
		return c.StorageDir
	}
	return parentDir(c.RootDir)
}

// GameRoot returns the game root for pkg, or for DefaultGame when pkg is empty.
func (c *Config) GameRoot(pkg layout.PackageID) (layout.GameRoot, error) {
	if pkg == "" {
		pkg = c.DefaultGame
	}
	return layout.NewGameRoot(c.RootDir, pkg)
}

// Requirements returns the validator requirements, keeping the built-in list
// for every bucket left empty.
func (c *Config) Requirements() validate.Requirements {
	req := validate.DefaultRequirements()
	if len(c.Validation.ModernRequired) > 0 {
		req.Modern = slices.Clone(c.Validation.ModernRequired)
	}
	if len(c.Validation.LegacyRequired) > 0 {
		req.Legacy = slices.Clone(c.Validation.LegacyRequired)
	}
	if len(c.Validation.SupportRequired) > 0 {
		req.Support = slices.Clone(c.Validation.SupportRequired)
	}
	if c.Validation.Threshold > 0 {
		req.Threshold = c.Validation.Threshold
	}
	return req
}

// Manifest returns the manifest written into patched packages.
func (c *Config) Manifest() inject.Manifest {
	m := inject.DefaultManifest()
	if c.Inject.LoaderVersion != "" {
		m.Version = c.Inject.LoaderVersion
	}
	if c.Inject.GameName != "" {
		m.Game = c.Inject.GameName
	}
	if c.Inject.InjectedBy != "" {
		m.InjectedBy = c.Inject.InjectedBy
	}
	return m
}

// DownloadTimeout parses Download.Timeout. An empty value means
// fetch.DefaultTimeout.
func (c *Config) DownloadTimeout() (time.Duration, error) {
	if c.Download.Timeout == "" {
		return fetch.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Download.Timeout)
	if err != nil {
		return 0, fmt.Errorf("download.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("download.timeout: must be positive, got %s", d)
	}
	return d, nil
}

// TOML renders the configuration as TOML. The download token is masked.
func (c *Config) TOML() ([]byte, error) {
	out := *c
	if out.Download.Token != "" {
		out.Download.Token = "***"
	}
	data, err := toml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// Validate returns an *InvalidConfigError listing every invalid field, or nil.
func (c *Config) Validate() error {
	if ok, errs := c.IsValid(); !ok {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// IsValid returns whether the Config has valid fields.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.RootDir) == "" {
		errs = append(errs, errors.New("root_dir: must be non-empty"))
	}
	if ok, fieldErrs := c.DefaultGame.IsValid(); !ok {
		for _, err := range fieldErrs {
			errs = append(errs, fmt.Errorf("default_game: %w", err))
		}
	}
	switch c.DefaultVariant {
	case VariantModern, VariantLegacy, VariantAuto:
	default:
		errs = append(errs, fmt.Errorf("default_variant: %q is not one of modern, legacy, auto", c.DefaultVariant))
	}
	if strings.TrimSpace(c.Inject.ABI) == "" {
		errs = append(errs, errors.New("inject.abi: must be non-empty"))
	}
	if t := c.Validation.Threshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("validation.threshold: %v is outside (0, 1]", t))
	}
	if c.Backups.Keep < 0 {
		errs = append(errs, fmt.Errorf("backups.keep: %d is negative", c.Backups.Keep))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := c.DownloadTimeout(); err != nil {
		errs = append(errs, err)
	}
	if s := c.Download.SHA256; s != "" && !isHexDigest(s) {
		errs = append(errs, fmt.Errorf("download.sha256: %q is not a SHA-256 hex digest", s))
	}
	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
