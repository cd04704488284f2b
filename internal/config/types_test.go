// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/melonpatch/melonpatch/pkg/layout"
	"github.com/melonpatch/melonpatch/pkg/validate"

	"github.com/pelletier/go-toml/v2"
)

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty root", func(c *Config) { c.RootDir = " " }, "root_dir"},
		{"bad package", func(c *Config) { c.DefaultGame = ".." }, "default_game"},
		{"bad variant", func(c *Config) { c.DefaultVariant = "both" }, "default_variant"},
		{"empty abi", func(c *Config) { c.Inject.ABI = "" }, "inject.abi"},
		{"zero threshold", func(c *Config) { c.Validation.Threshold = 0 }, "validation.threshold"},
		{"threshold above one", func(c *Config) { c.Validation.Threshold = 1.5 }, "validation.threshold"},
		{"negative keep", func(c *Config) { c.Backups.Keep = -2 }, "backups.keep"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad timeout", func(c *Config) { c.Download.Timeout = "-1s" }, "download.timeout"},
		{"bad digest", func(c *Config) { c.Download.SHA256 = "abc" }, "download.sha256"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)

			ok, errs := cfg.IsValid()
			if ok || len(errs) != 1 {
				t.Fatalf("IsValid() = %v, %v; want one error", ok, errs)
			}
			if !strings.HasPrefix(errs[0].Error(), tt.field) {
				t.Errorf("error %q should start with %s", errs[0], tt.field)
			}

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_IsValid_CollectsAll(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DefaultVariant = ""
	cfg.Backups.Keep = -1
	cfg.Log.Level = "nope"

	var invalid *InvalidConfigError
	if err := cfg.Validate(); !errors.As(err, &invalid) {
		t.Fatalf("Validate() = %v, want *InvalidConfigError", err)
	}
	if len(invalid.FieldErrors) != 3 {
		t.Errorf("FieldErrors = %v, want 3", invalid.FieldErrors)
	}
}

func TestConfig_Requirements(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if got, want := cfg.Requirements(), validate.DefaultRequirements(); !slices.Equal(got.Support, want.Support) || got.Threshold != want.Threshold {
		t.Errorf("Requirements() = %+v, want defaults", got)
	}

	cfg.Validation.ModernRequired = []string{"net8/Only.dll"}
	cfg.Validation.LegacyRequired = nil
	cfg.Validation.Threshold = 1
	req := cfg.Requirements()
	if !slices.Equal(req.Modern, []string{"net8/Only.dll"}) {
		t.Errorf("Modern = %v", req.Modern)
	}
	if len(req.Legacy) != 4 {
		t.Errorf("Legacy = %v, want the built-in list", req.Legacy)
	}
	if req.Threshold != 1 {
		t.Errorf("Threshold = %v", req.Threshold)
	}

	req.Modern[0] = "mutated"
	if cfg.Validation.ModernRequired[0] != "net8/Only.dll" {
		t.Error("Requirements() must not alias the config slices")
	}
}

func TestConfig_Manifest(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Inject.LoaderVersion = "0.7.0"
	cfg.Inject.GameName = ""

	m := cfg.Manifest()
	if m.Version != "0.7.0" {
		t.Errorf("Version = %q", m.Version)
	}
	if m.Game != "Terraria" {
		t.Errorf("Game = %q, want the default", m.Game)
	}
	if m.LoaderType != "MelonLoader" || m.InjectedBy != "TerrariaLoader" {
		t.Errorf("Manifest() = %+v", m)
	}
}

func TestConfig_GameRootAndStorage(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "Games")
	cfg := DefaultConfig()
	cfg.RootDir = base

	root, err := cfg.GameRoot("")
	if err != nil {
		t.Fatal(err)
	}
	if root.Dir() != filepath.Join(base, string(layout.DefaultPackage)) {
		t.Errorf("GameRoot(\"\").Dir() = %q", root.Dir())
	}
	root, err = cfg.GameRoot("com.example.game")
	if err != nil {
		t.Fatal(err)
	}
	if root.Package != "com.example.game" {
		t.Errorf("Package = %q", root.Package)
	}
	if _, err := cfg.GameRoot("a/b"); !errors.Is(err, layout.ErrInvalidPackageID) {
		t.Errorf("GameRoot(a/b) error = %v", err)
	}

	if got := cfg.Storage(); got != filepath.Dir(base) {
		t.Errorf("Storage() = %q, want %q", got, filepath.Dir(base))
	}
	cfg.StorageDir = "/legacy"
	if got := cfg.Storage(); got != "/legacy" {
		t.Errorf("Storage() = %q, want /legacy", got)
	}
}

func TestConfig_DownloadTimeout(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Download.Timeout = ""
	if d, err := cfg.DownloadTimeout(); err != nil || d != 5*time.Minute {
		t.Errorf("DownloadTimeout() = %v, %v", d, err)
	}
	cfg.Download.Timeout = "90s"
	if d, err := cfg.DownloadTimeout(); err != nil || d != 90*time.Second {
		t.Errorf("DownloadTimeout() = %v, %v", d, err)
	}
	cfg.Download.Timeout = "0s"
	if _, err := cfg.DownloadTimeout(); err == nil {
		t.Error("expected an error for a zero timeout")
	}
}

func TestConfig_TOML(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Download.Token = "ghp_secret"
	cfg.Backups.Keep = 8

	data, err := cfg.TOML()
	if err != nil {
		t.Fatalf("TOML() error: %v", err)
	}
	if strings.Contains(string(data), "ghp_secret") {
		t.Error("TOML output must mask the download token")
	}
	if cfg.Download.Token != "ghp_secret" {
		t.Error("TOML() must not modify the config")
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid TOML: %v\n%s", err, data)
	}
	backups, ok := doc["backups"].(map[string]any)
	if !ok || backups["keep"] != int64(8) {
		t.Errorf("backups = %v", doc["backups"])
	}
	if doc["default_game"] != string(layout.DefaultPackage) {
		t.Errorf("default_game = %v", doc["default_game"])
	}
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	held := DefaultConfig()
	held.Backups.Keep = 1
	p := StaticProvider{Config: held}

	cfg, err := p.Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Backups.Keep = 99
	if held.Backups.Keep != 1 {
		t.Error("Load() must return a copy")
	}

	cfg, err = StaticProvider{}.Load(context.Background(), LoadOptions{})
	if err != nil || cfg.Backups.Keep != DefaultBackupsKeep {
		t.Errorf("empty StaticProvider Load() = %+v, %v", cfg, err)
	}
}
