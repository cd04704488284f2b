// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/melonpatch/melonpatch/pkg/mods"

	"github.com/spf13/cobra"
)

// newModsCommand creates the `melonpatch mods` command tree.
func newModsCommand(app *App) *cobra.Command {
	modsCmd := &cobra.Command{
		Use:   "mods",
		Short: "Manage installed mods",
		Long: `Manage the mods installed for a game.

DLL mods live in Mods/DLL, DEX and JAR mods in Mods/DEX. A mod is disabled by
renaming it to <name>.disabled; exactly one of the two forms exists at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	modsCmd.AddCommand(
		newModsListCommand(app),
		newModsInstallCommand(app),
		newModsStateCommand(app, "enable", "Enable a disabled mod", (*mods.Manager).Enable),
		newModsStateCommand(app, "disable", "Disable a mod without deleting it", (*mods.Manager).Disable),
		newModsStateCommand(app, "toggle", "Flip a mod between enabled and disabled", (*mods.Manager).Toggle),
		newModsDeleteCommand(app),
		newModsStatsCommand(app),
		newModsExportCommand(app),
		newModsBackupCommand(app),
	)
	return modsCmd
}

func newModsListCommand(app *App) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed mods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "mods-list", func(_ context.Context, s *session) error {
				k, err := mods.ParseKind(kind)
				if err != nil {
					return err
				}
				list, err := s.modManager(app.Clock).List(k)
				if err != nil {
					return actionable(err, "list mods", s.root.Dir())
				}
				if len(list) == 0 {
					s.println(SubtitleStyle.Render("No mods installed."))
					return nil
				}
				s.println(TitleStyle.Render(fmt.Sprintf("Mods for %s", s.root.Package)))
				for _, m := range list {
					s.printf("  %s %-40s %-4s %s\n", stateIcon(m), m.Name, m.Kind, VerboseStyle.Render(formatBytes(m.Size)))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list mods of this kind: dll, dex or jar")
	return cmd
}

func newModsInstallCommand(app *App) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "install <file>...",
		Short: "Copy mod files into the game's mod directories",
		Long: `Copy mod files into the game's mod directories.

The kind is detected from the extension (.dll, .dex, .jar). DLL mods must be
.NET PE binaries. An installed mod with the same name is replaced. A file
named <name>.disabled is installed disabled.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, "mods-install", func(_ context.Context, s *session) error {
				k, err := mods.ParseKind(kind)
				if err != nil {
					return err
				}
				mgr := s.modManager(app.Clock)
				for _, src := range args {
					m, err := mgr.Install(src, k)
					if err != nil {
						return actionable(err, "install mod", src, "Only .dll, .dex and .jar files can be installed")
					}
					s.printf("%s installed %s (%s, %s)\n", SuccessStyle.Render(successIcon), CmdStyle.Render(m.Name), m.Kind, m.State)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "require this kind: dll, dex or jar")
	return cmd
}

func newModsStateCommand(app *App, use, short string, op func(*mods.Manager, string) (mods.Mod, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, "mods-"+use, func(_ context.Context, s *session) error {
				mgr := s.modManager(app.Clock)
				for _, name := range args {
					m, err := op(mgr, name)
					if err != nil {
						return actionable(err, use+" mod", name)
					}
					s.printf("%s %s is %s\n", stateIcon(m), CmdStyle.Render(m.Name), m.State)
				}
				return nil
			})
		},
	}
}

func newModsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete installed mods",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, "mods-delete", func(_ context.Context, s *session) error {
				mgr := s.modManager(app.Clock)
				for _, name := range args {
					if err := mgr.Delete(name); err != nil {
						return actionable(err, "delete mod", name)
					}
					s.printf("%s deleted %s\n", SuccessStyle.Render(successIcon), name)
				}
				return nil
			})
		},
	}
}

func newModsStatsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize installed mods per kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "mods-stats", func(_ context.Context, s *session) error {
				st, err := s.modManager(app.Clock).Stats()
				if err != nil {
					return actionable(err, "collect mod statistics", s.root.Dir())
				}
				s.println(TitleStyle.Render("Mod statistics"))
				kinds := make([]mods.Kind, 0, len(st.ByKind))
				for k := range st.ByKind {
					kinds = append(kinds, k)
				}
				slices.Sort(kinds)
				for _, k := range kinds {
					printCounts(s, k.String(), st.ByKind[k])
				}
				printCounts(s, "total", st.Total)
				return nil
			})
		},
	}
}

func printCounts(s *session, label string, c mods.Counts) {
	s.printf("  %-6s %3d mods  %s %d  %s %d  %s\n",
		label, c.Count(),
		SuccessStyle.Render("enabled"), c.Enabled,
		WarningStyle.Render("disabled"), c.Disabled,
		VerboseStyle.Render(formatBytes(c.Size)))
}

func newModsExportCommand(app *App) *cobra.Command {
	var (
		format string
		output string
	)
	formats := make([]string, 0, len(mods.Formats()))
	for _, f := range mods.Formats() {
		formats = append(formats, string(f))
	}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the mod list as text, JSON, YAML or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "mods-export", func(_ context.Context, s *session) (err error) {
				f, err := mods.ParseFormat(format)
				if err != nil {
					return err
				}
				var w io.Writer = s.stdout
				if output != "" {
					file, createErr := os.Create(output)
					if createErr != nil {
						return actionable(createErr, "create export file", output)
					}
					defer func() {
						if closeErr := file.Close(); closeErr != nil && err == nil {
							err = closeErr
						}
					}()
					w = file
				}
				if err := s.modManager(app.Clock).Export(w, f); err != nil {
					return actionable(err, "export mods", s.root.Dir())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(mods.FormatText), "output format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newModsBackupCommand(app *App) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy all mods into a timestamped backup directory",
		Long: `Copy all mods into Backups/mods_<timestamp> and remove the oldest backups
beyond the retention limit (backups.keep, or --keep).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "mods-backup", func(_ context.Context, s *session) error {
				mgr := s.modManager(app.Clock)
				rep, err := mgr.Backup()
				if err != nil {
					return actionable(err, "back up mods", s.root.Dir())
				}
				s.printf("%s backed up %d file%s to %s\n", SuccessStyle.Render(successIcon), rep.Files, plural(rep.Files, "", "s"), CmdStyle.Render(rep.Dir))

				limit := s.cfg.Backups.Keep
				if cmd.Flags().Changed("keep") {
					limit = keep
				}
				if limit <= 0 {
					return nil
				}
				removed, err := mgr.CleanupBackups(limit)
				for _, dir := range removed {
					s.printf("  %s removed old backup %s\n", VerboseStyle.Render("-"), dir)
				}
				if err != nil {
					return actionable(err, "clean up old backups", s.root.Dir())
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "number of backups to keep, 0 keeps all (default: backups.keep)")
	return cmd
}

func stateIcon(m mods.Mod) string {
	if m.Enabled() {
		return SuccessStyle.Render(successIcon)
	}
	return WarningStyle.Render(warnIcon)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
