// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/melonpatch/melonpatch/internal/issue"

	"github.com/spf13/cobra"
)

// newInitCommand creates the `melonpatch init` command.
func newInitCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the canonical directory tree for a game",
		Long: `Create every canonical directory under the game root.

Existing directories are left untouched, so running init again is safe.

Examples:
  melonpatch init
  melonpatch init --game com.example.game`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "init", func(_ context.Context, s *session) error {
				res := s.lifecycle().Initialize(s.root)
				s.printf("%s %s\n", TitleStyle.Render("Game root:"), CmdStyle.Render(s.root.Dir()))
				s.printf("  created %d director%s\n", len(res.Created), plural(len(res.Created), "y", "ies"))
				for _, dir := range res.Created {
					s.printf("  %s %s\n", SuccessStyle.Render(successIcon), VerboseStyle.Render(dir))
				}
				if res.OK {
					return nil
				}
				for _, dir := range res.Failed {
					s.printf("  %s %s\n", ErrorStyle.Render(failIcon), dir)
				}
				return issue.NewErrorContext().
					WithOperation("initialize game directory").
					WithResource(s.root.Dir()).
					WithSuggestion("Check that the parent directory is writable").
					WithIssue(issue.PermissionDeniedId).
					Wrap(fmt.Errorf("%d of the canonical directories could not be created", len(res.Failed))).
					BuildError()
			})
		},
	}
}

// newMigrateCommand creates the `melonpatch migrate` command.
func newMigrateCommand(app *App) *cobra.Command {
	var storage string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move mods and logs from the legacy flat layout",
		Long: `Move mods and logs from the legacy flat layout into the game root.

The legacy layout keeps mods/ and logs/ directly in the storage directory
(storage_dir, or the parent of root_dir). Migration runs only while the game
root does not exist yet; afterwards the canonical tree is initialized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "migrate", func(_ context.Context, s *session) error {
				dir := storage
				if dir == "" {
					dir = s.cfg.Storage()
				}
				lc := s.lifecycle()
				if !lc.NeedsMigration(dir, s.root) {
					s.println(SubtitleStyle.Render("Nothing to migrate."))
					return nil
				}

				rep := lc.Migrate(dir, s.root)
				s.printf("%s moved %d file%s into %s\n", SuccessStyle.Render(successIcon), rep.Moved, plural(rep.Moved, "", "s"), CmdStyle.Render(s.root.Dir()))
				if len(rep.Failed) == 0 && rep.Init.OK {
					return nil
				}
				for _, f := range rep.Failed {
					s.printf("  %s %s\n", ErrorStyle.Render(failIcon), f)
				}
				return issue.NewErrorContext().
					WithOperation("migrate legacy layout").
					WithResource(dir).
					WithSuggestion("Move the remaining files by hand, then run 'melonpatch validate'").
					WithIssue(issue.MigrationIncompleteId).
					Wrap(fmt.Errorf("%d file(s) could not be moved", len(rep.Failed))).
					BuildError()
			})
		},
	}
	cmd.Flags().StringVar(&storage, "storage", "", "legacy storage directory (default: storage_dir)")
	return cmd
}

// newUninstallCommand creates the `melonpatch uninstall` command.
func newUninstallCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Delete the game root with the loader, mods and logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "uninstall", func(_ context.Context, s *session) error {
				if !yes {
					return issue.NewErrorContext().
						WithOperation("uninstall").
						WithResource(s.root.Dir()).
						WithSuggestion("Pass --yes to confirm; this deletes installed mods too").
						WithSuggestion("Run 'melonpatch mods backup' first to keep a copy of your mods").
						Wrap(errors.New("refusing to delete without confirmation")).
						BuildError()
				}
				if err := s.lifecycle().Uninstall(s.root); err != nil {
					return actionable(err, "uninstall", s.root.Dir())
				}
				s.printf("%s removed %s\n", SuccessStyle.Render(successIcon), CmdStyle.Render(s.root.Dir()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion of the game root")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
