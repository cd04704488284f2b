// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/melonpatch/melonpatch/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `melonpatch config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage melonpatch configuration",
		Long: `Manage melonpatch configuration.

Configuration is stored in:
  - Linux: ~/.config/melonpatch/config.cue
  - macOS: ~/Library/Application Support/melonpatch/config.cue
  - Windows: %APPDATA%\melonpatch\config.cue

A .env file next to the config file and MELONPATCH_<SECTION>_<KEY>
environment variables override file values, e.g.
MELONPATCH_VALIDATION_THRESHOLD=0.75.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions())
			if err != nil {
				return app.fail(cmd, err)
			}
			data, err := cfg.TOML()
			if err != nil {
				return app.fail(cmd, err)
			}
			out := cmd.OutOrStdout()
			path, exists, err := config.FilePath(app.loadOptions())
			switch {
			case err != nil || !exists:
				fmt.Fprintf(out, "# %s\n", SubtitleStyle.Render("config file: (using defaults)"))
			default:
				fmt.Fprintf(out, "# %s\n", SubtitleStyle.Render("config file: "+path))
			}
			_, err = out.Write(data)
			return err
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, created, err := config.CreateDefaultConfig("")
			if err != nil {
				return app.fail(cmd, actionable(err, "create configuration file", path))
			}
			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(out, "%s config file already exists: %s\n", WarningStyle.Render(warnIcon), CmdStyle.Render(path))
				return nil
			}
			fmt.Fprintf(out, "%s created %s\n", SuccessStyle.Render(successIcon), CmdStyle.Render(path))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _, err := config.FilePath(app.loadOptions())
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return cfgCmd
}
