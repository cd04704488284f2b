// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "melonpatch",
		Short: "Install MelonLoader into games and patch application packages",
		Long: TitleStyle.Render("melonpatch") + SubtitleStyle.Render(" - MelonLoader installer") + `

melonpatch keeps a canonical per-game directory tree, extracts MelonLoader
distribution archives into it, validates the installation and injects the
runtime into application packages (APK files).

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create the game directory tree:  melonpatch init
  2. Install the loader:              melonpatch install --download
  3. Check the installation:          melonpatch validate
  4. Patch a package:                 melonpatch patch game.apk game-patched.apk

` + SubtitleStyle.Render("Examples:") + `
  melonpatch install ./MelonLoader.zip --variant auto
  melonpatch mods install ./MyMod.dll
  melonpatch config show`,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is $HOME/.config/melonpatch/config.cue)")
	pf.StringVar(&app.flags.rootDir, "root", "", "directory holding the game roots (overrides root_dir)")
	pf.StringVarP(&app.flags.game, "game", "g", "", "package identifier of the target game (overrides default_game)")

	rootCmd.AddCommand(
		newInitCommand(app),
		newMigrateCommand(app),
		newInstallCommand(app),
		newValidateCommand(app),
		newRepairCommand(app),
		newPatchCommand(app),
		newIsPatchedCommand(app),
		newPreviewCommand(app),
		newModsCommand(app),
		newConfigCommand(app),
		newUninstallCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the command tree.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}
