// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/melonpatch/melonpatch/internal/issue"
	"github.com/melonpatch/melonpatch/pkg/cueutil"
	"github.com/melonpatch/melonpatch/pkg/platform"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "melonpatch"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvFileName is the dotenv file read from the config directory.
	EnvFileName = ".env"
	// EnvPrefix prefixes every environment variable override, e.g.
	// MELONPATCH_VALIDATION_THRESHOLD.
	EnvPrefix = "MELONPATCH"
	// GamesDirName is the directory under the data dir holding game roots.
	GamesDirName = "Games"
)

//go:embed config_schema.cue
var configSchema string

var envKeyReplacer = strings.NewReplacer(".", "_")

// ConfigDir returns the melonpatch configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DataDir returns the default directory holding game roots:
// %LOCALAPPDATA%\melonpatch\Games on Windows,
// ~/Library/Application Support/melonpatch/Games on macOS and
// $XDG_DATA_HOME/melonpatch/Games (defaulting to ~/.local/share) elsewhere.
func DataDir() (string, error) {
	if dataDirOverride != "" {
		return dataDirOverride, nil
	}

	var dataDir string

	switch runtime.GOOS {
	case platform.Windows:
		dataDir = os.Getenv("LOCALAPPDATA")
		if dataDir == "" {
			dataDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, "Library", "Application Support")
	default:
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(dataDir, AppName, GamesDirName), nil
}

// FilePath returns the config file loadWithOptions would read for opts, and
// whether it exists. Without an explicit file it is the file in the config
// directory.
func FilePath(opts LoadOptions) (string, bool, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, fileExists(opts.ConfigFilePath), nil
	}
	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", false, err
	}
	p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	return p, fileExists(p), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. Precedence, lowest first: defaults, CUE file, .env
// file, process environment.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'melonpatch config init' to write a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", cueLoadError(opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		localCuePath := ConfigFileName + "." + ConfigFileExt
		switch {
		case fileExists(cuePath):
			resolvedPath = cuePath
		case fileExists(localCuePath):
			resolvedPath = localCuePath
		}
		if resolvedPath != "" {
			if err := loadCUEIntoViper(v, resolvedPath); err != nil {
				return nil, "", cueLoadError(resolvedPath, err)
			}
		}
	}

	envPath, err := envFilePath(opts, resolvedPath)
	if err != nil {
		return nil, "", err
	}
	if err := applyDotEnv(v, envPath); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("load environment file").
			WithResource(envPath).
			WithSuggestion("Check that every line has the form KEY=value").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Run 'melonpatch config show' to see the effective values").
			WithSuggestion("Check MELONPATCH_* environment variables and the .env file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root_dir", d.RootDir)
	v.SetDefault("storage_dir", d.StorageDir)
	v.SetDefault("default_game", string(d.DefaultGame))
	v.SetDefault("default_variant", d.DefaultVariant)
	v.SetDefault("inject.abi", d.Inject.ABI)
	v.SetDefault("inject.loader_version", d.Inject.LoaderVersion)
	v.SetDefault("inject.game_name", d.Inject.GameName)
	v.SetDefault("inject.injected_by", d.Inject.InjectedBy)
	v.SetDefault("validation.threshold", d.Validation.Threshold)
	v.SetDefault("validation.modern_required", d.Validation.ModernRequired)
	v.SetDefault("validation.legacy_required", d.Validation.LegacyRequired)
	v.SetDefault("validation.support_required", d.Validation.SupportRequired)
	v.SetDefault("download.url", d.Download.URL)
	v.SetDefault("download.repo", d.Download.Repo)
	v.SetDefault("download.tag", d.Download.Tag)
	v.SetDefault("download.asset", d.Download.Asset)
	v.SetDefault("download.sha256", d.Download.SHA256)
	v.SetDefault("download.token", d.Download.Token)
	v.SetDefault("download.timeout", d.Download.Timeout)
	v.SetDefault("backups.keep", d.Backups.Keep)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

func cueLoadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("See 'melonpatch config --help' for configuration options").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// envFilePath picks the dotenv file: the explicit one, else the one next to
// the loaded config file, else the one in the config directory.
func envFilePath(opts LoadOptions, resolvedPath string) (string, error) {
	if opts.EnvFilePath != "" {
		return opts.EnvFilePath, nil
	}
	if resolvedPath != "" {
		return filepath.Join(filepath.Dir(resolvedPath), EnvFileName), nil
	}
	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, EnvFileName), nil
}

// applyDotEnv reads path and sets every known key whose MELONPATCH_* variable
// appears there. Variables already present in the process environment win,
// so they are left to AutomaticEnv. A missing file is not an error.
func applyDotEnv(v *viper.Viper, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := EnvName(key)
		val, ok := vars[name]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		v.Set(key, val)
	}
	return nil
}

// EnvName returns the environment variable overriding key, e.g.
// "download.timeout" -> "MELONPATCH_DOWNLOAD_TIMEOUT".
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

// loadCUEIntoViper validates a CUE file against the #Config schema and
// merges its contents into Viper. Concrete(false) because every field is
// optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

func parentDir(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Dir(filepath.Clean(p))
}

// CreateDefaultConfig writes a default config file into dir (the config
// directory when empty) unless one exists. It returns the file path and
// whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// Save writes cfg to the config file in dir (the config directory when empty).
func Save(dir string, cfg *Config) error {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration.
// The download token is never written.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// melonpatch configuration file\n")
	sb.WriteString("// Environment variables (MELONPATCH_<SECTION>_<KEY>) and a .env file\n")
	sb.WriteString("// next to this file override these values.\n\n")

	sb.WriteString(fmt.Sprintf("root_dir:        %q\n", cfg.RootDir))
	if cfg.StorageDir != "" {
		sb.WriteString(fmt.Sprintf("storage_dir:     %q\n", cfg.StorageDir))
	}
	sb.WriteString(fmt.Sprintf("default_game:    %q\n", cfg.DefaultGame))
	sb.WriteString(fmt.Sprintf("default_variant: %q\n", cfg.DefaultVariant))

	sb.WriteString("\ninject: {\n")
	sb.WriteString(fmt.Sprintf("\tabi:            %q\n", cfg.Inject.ABI))
	sb.WriteString(fmt.Sprintf("\tloader_version: %q\n", cfg.Inject.LoaderVersion))
	sb.WriteString(fmt.Sprintf("\tgame_name:      %q\n", cfg.Inject.GameName))
	sb.WriteString(fmt.Sprintf("\tinjected_by:    %q\n", cfg.Inject.InjectedBy))
	sb.WriteString("}\n")

	sb.WriteString("\nvalidation: {\n")
	sb.WriteString(fmt.Sprintf("\tthreshold: %v\n", cfg.Validation.Threshold))
	writeCUEList(&sb, "modern_required", cfg.Validation.ModernRequired)
	writeCUEList(&sb, "legacy_required", cfg.Validation.LegacyRequired)
	writeCUEList(&sb, "support_required", cfg.Validation.SupportRequired)
	sb.WriteString("}\n")

	sb.WriteString("\ndownload: {\n")
	if cfg.Download.URL != "" {
		sb.WriteString(fmt.Sprintf("\turl:     %q\n", cfg.Download.URL))
	}
	sb.WriteString(fmt.Sprintf("\trepo:    %q\n", cfg.Download.Repo))
	if cfg.Download.Tag != "" {
		sb.WriteString(fmt.Sprintf("\ttag:     %q\n", cfg.Download.Tag))
	}
	sb.WriteString(fmt.Sprintf("\tasset:   %q\n", cfg.Download.Asset))
	if cfg.Download.SHA256 != "" {
		sb.WriteString(fmt.Sprintf("\tsha256:  %q\n", cfg.Download.SHA256))
	}
	sb.WriteString(fmt.Sprintf("\ttimeout: %q\n", cfg.Download.Timeout))
	sb.WriteString("}\n")

	sb.WriteString(fmt.Sprintf("\nbackups: keep: %d\n", cfg.Backups.Keep))
	sb.WriteString(fmt.Sprintf("log: level: %q\n", cfg.Log.Level))
	if cfg.Metrics.Textfile != "" {
		sb.WriteString(fmt.Sprintf("metrics: textfile: %q\n", cfg.Metrics.Textfile))
	}

	return sb.String()
}

func writeCUEList(sb *strings.Builder, name string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\t%s: [\n", name))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("\t\t%q,\n", item))
	}
	sb.WriteString("\t]\n")
}
