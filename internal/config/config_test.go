// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/melonpatch/melonpatch/internal/issue"
	"github.com/melonpatch/melonpatch/pkg/layout"
	"github.com/melonpatch/melonpatch/pkg/platform"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid, got: %v", err)
	}
	if cfg.DefaultGame != layout.DefaultPackage {
		t.Errorf("DefaultGame = %q, want %q", cfg.DefaultGame, layout.DefaultPackage)
	}
	if cfg.DefaultVariant != VariantModern {
		t.Errorf("DefaultVariant = %q, want %q", cfg.DefaultVariant, VariantModern)
	}
	if cfg.Inject.ABI != "arm64-v8a" {
		t.Errorf("Inject.ABI = %q, want arm64-v8a", cfg.Inject.ABI)
	}
	if cfg.Validation.Threshold != 0.5 {
		t.Errorf("Validation.Threshold = %v, want 0.5", cfg.Validation.Threshold)
	}
	if cfg.Download.Repo != "LavaGang/MelonLoader" {
		t.Errorf("Download.Repo = %q", cfg.Download.Repo)
	}
	if cfg.Download.Timeout != "5m0s" {
		t.Errorf("Download.Timeout = %q, want 5m0s", cfg.Download.Timeout)
	}
	if cfg.Backups.Keep != DefaultBackupsKeep {
		t.Errorf("Backups.Keep = %d, want %d", cfg.Backups.Keep, DefaultBackupsKeep)
	}
	if filepath.Base(cfg.RootDir) != GamesDirName {
		t.Errorf("RootDir = %q, want a %s directory", cfg.RootDir, GamesDirName)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	want := DefaultConfig()
	if cfg.RootDir != want.RootDir || cfg.DefaultGame != want.DefaultGame {
		t.Errorf("loaded %+v, want defaults %+v", cfg, want)
	}
	if !slices.Equal(cfg.Validation.ModernRequired, want.Validation.ModernRequired) {
		t.Errorf("ModernRequired = %v, want %v", cfg.Validation.ModernRequired, want.Validation.ModernRequired)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.cue"), `
root_dir: "/srv/games"
default_game: "com.example.game"
default_variant: "legacy"
inject: abi: "armeabi-v7a"
validation: {
	threshold: 0.75
	modern_required: ["net8/MelonLoader.dll"]
}
backups: keep: 2
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}
	if cfg.RootDir != "/srv/games" {
		t.Errorf("RootDir = %q", cfg.RootDir)
	}
	if cfg.DefaultGame != "com.example.game" {
		t.Errorf("DefaultGame = %q", cfg.DefaultGame)
	}
	if cfg.DefaultVariant != VariantLegacy {
		t.Errorf("DefaultVariant = %q", cfg.DefaultVariant)
	}
	if cfg.Inject.ABI != "armeabi-v7a" {
		t.Errorf("Inject.ABI = %q", cfg.Inject.ABI)
	}
	if cfg.Inject.GameName != "Terraria" {
		t.Errorf("Inject.GameName = %q, want the default to survive", cfg.Inject.GameName)
	}
	if cfg.Validation.Threshold != 0.75 {
		t.Errorf("Threshold = %v", cfg.Validation.Threshold)
	}
	if !slices.Equal(cfg.Validation.ModernRequired, []string{"net8/MelonLoader.dll"}) {
		t.Errorf("ModernRequired = %v", cfg.Validation.ModernRequired)
	}
	if len(cfg.Validation.LegacyRequired) != 4 {
		t.Errorf("LegacyRequired = %v, want the 4 defaults", cfg.Validation.LegacyRequired)
	}
	if cfg.Backups.Keep != 2 {
		t.Errorf("Backups.Keep = %d", cfg.Backups.Keep)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"threshold out of range", "validation: threshold: 2\n"},
		{"unknown variant", `default_variant: "sideways"` + "\n"},
		{"unknown key", "colour: true\n"},
		{"negative keep", "backups: keep: -1\n"},
		{"package with separator", `default_game: "a/b"` + "\n"},
		{"required path escapes", `validation: support_required: ["../x.dll"]` + "\n"},
		{"bad timeout", `download: timeout: "soon"` + "\n"},
		{"syntax error", "root_dir: \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "custom.cue")
			writeFile(t, path, tt.content)

			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected an error")
			}
			iss := issue.IssueOf(err)
			if iss == nil || iss.Id() != issue.ConfigLoadFailedId {
				t.Errorf("IssueOf() = %v, want ConfigLoadFailed", iss)
			}
			if !strings.Contains(err.Error(), path) {
				t.Errorf("error %q should name %s", err, path)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.cue")
	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error should be *issue.ActionableError, got %T", err)
	}
	if !ae.HasSuggestions() {
		t.Error("expected suggestions")
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// Precedence, lowest first: defaults, CUE file, .env file, process environment.
func TestLoad_EnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.cue"), "backups: keep: 3\nlog: level: \"warn\"\ninject: game_name: \"FromFile\"\n")
	writeFile(t, filepath.Join(dir, ".env"), strings.Join([]string{
		"MELONPATCH_BACKUPS_KEEP=7",
		"MELONPATCH_LOG_LEVEL=debug",
		"MELONPATCH_VALIDATION_THRESHOLD=0.25",
		"UNRELATED=1",
	}, "\n")+"\n")
	t.Setenv("MELONPATCH_BACKUPS_KEEP", "9")
	t.Setenv("MELONPATCH_DOWNLOAD_TAG", "v0.6.5")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if cfg.Backups.Keep != 9 {
		t.Errorf("Backups.Keep = %d, want 9 from the environment", cfg.Backups.Keep)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug from .env", cfg.Log.Level)
	}
	if cfg.Validation.Threshold != 0.25 {
		t.Errorf("Threshold = %v, want 0.25 from .env", cfg.Validation.Threshold)
	}
	if cfg.Inject.GameName != "FromFile" {
		t.Errorf("Inject.GameName = %q, want FromFile", cfg.Inject.GameName)
	}
	if cfg.Download.Tag != "v0.6.5" {
		t.Errorf("Download.Tag = %q, want v0.6.5", cfg.Download.Tag)
	}
}

func TestLoad_ExplicitEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "custom.env")
	writeFile(t, envPath, "MELONPATCH_DEFAULT_GAME=com.example.other\n")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir(), EnvFilePath: envPath})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if cfg.DefaultGame != "com.example.other" {
		t.Errorf("DefaultGame = %q", cfg.DefaultGame)
	}
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("MELONPATCH_DEFAULT_VARIANT", "sideways")

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("error should carry *InvalidConfigError, got %T", err)
	}
	if len(invalid.FieldErrors) != 1 {
		t.Errorf("FieldErrors = %v, want one", invalid.FieldErrors)
	}
}

func TestGenerateCUE_Loads(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.RootDir = filepath.Join(t.TempDir(), "Games")
	cfg.StorageDir = "/legacy"
	cfg.Validation.Threshold = 1
	cfg.Validation.SupportRequired = []string{"Dependencies/SupportModules/Il2Cpp.dll"}
	cfg.Download.URL = "https://example.com/MelonLoader.zip"
	cfg.Download.SHA256 = strings.Repeat("ab", 32)
	cfg.Download.Token = "secret"
	cfg.Metrics.Textfile = "/var/lib/node_exporter/melonpatch.prom"

	content := GenerateCUE(cfg)
	if strings.Contains(content, "secret") {
		t.Error("generated config must not contain the download token")
	}

	path := filepath.Join(t.TempDir(), "config.cue")
	writeFile(t, path, content)
	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v\n%s", err, content)
	}
	if got.RootDir != cfg.RootDir || got.StorageDir != cfg.StorageDir {
		t.Errorf("dirs = %q, %q", got.RootDir, got.StorageDir)
	}
	if got.Validation.Threshold != 1 {
		t.Errorf("Threshold = %v", got.Validation.Threshold)
	}
	if !slices.Equal(got.Validation.SupportRequired, cfg.Validation.SupportRequired) {
		t.Errorf("SupportRequired = %v", got.Validation.SupportRequired)
	}
	if got.Download.URL != cfg.Download.URL || got.Download.SHA256 != cfg.Download.SHA256 {
		t.Errorf("Download = %+v", got.Download)
	}
	if got.Metrics.Textfile != cfg.Metrics.Textfile {
		t.Errorf("Metrics.Textfile = %q", got.Metrics.Textfile)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "melonpatch")
	path, created, err := CreateDefaultConfig(dir)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if !created || path != filepath.Join(dir, "config.cue") {
		t.Fatalf("CreateDefaultConfig() = %q, %v", path, created)
	}

	writeFile(t, path, "backups: keep: 1\n")
	if _, created, err = CreateDefaultConfig(dir); err != nil || created {
		t.Errorf("second call = %v, %v; want existing file kept", created, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "backups: keep: 1\n" {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

func TestSave(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Backups.Keep = 11
	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatal(err)
	}
	if got.Backups.Keep != 11 {
		t.Errorf("Backups.Keep = %d, want 11", got.Backups.Keep)
	}
}

func TestFilePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, exists, err := FilePath(LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "config.cue") || exists {
		t.Errorf("FilePath() = %q, %v", path, exists)
	}

	explicit := filepath.Join(dir, "other.cue")
	writeFile(t, explicit, "")
	path, exists, err = FilePath(LoadOptions{ConfigFilePath: explicit, ConfigDirPath: dir})
	if err != nil {
		t.Fatal(err)
	}
	if path != explicit || !exists {
		t.Errorf("FilePath() = %q, %v", path, exists)
	}
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"root_dir":             "MELONPATCH_ROOT_DIR",
		"download.timeout":     "MELONPATCH_DOWNLOAD_TIMEOUT",
		"validation.threshold": "MELONPATCH_VALIDATION_THRESHOLD",
	}
	for key, want := range tests {
		if got := EnvName(key); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != platform.Linux {
		t.Skip("XDG lookup only applies on Linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}

	t.Setenv("XDG_DATA_HOME", "/tmp/test-xdg-data")
	dir, err = DataDir()
	if err != nil {
		t.Fatalf("DataDir() returned error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-data", AppName, GamesDirName); dir != want {
		t.Errorf("DataDir() = %s, want %s", dir, want)
	}
}

func TestOverrides(t *testing.T) {
	t.Cleanup(Reset)

	SetConfigDirOverride("/override/config")
	SetDataDirOverride("/override/data")

	if dir, _ := ConfigDir(); dir != "/override/config" {
		t.Errorf("ConfigDir() = %s", dir)
	}
	if dir, _ := DataDir(); dir != "/override/data" {
		t.Errorf("DataDir() = %s", dir)
	}

	Reset()
	if configDirOverride != "" || dataDirOverride != "" {
		t.Error("expected overrides to be empty after Reset()")
	}
}
