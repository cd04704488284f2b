// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"strings"

	"github.com/melonpatch/melonpatch/pkg/validate"

	"github.com/spf13/cobra"
)

// newValidateCommand creates the `melonpatch validate` command.
func newValidateCommand(app *App) *cobra.Command {
	var report bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the loader installation of a game",
		Long: `Check the loader installation of a game.

An installation is valid when the canonical directories exist, at least one
runtime (modern or legacy) has enough of its required files and the support
modules are present. The command exits with status 2 when it is not.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "validate", func(_ context.Context, s *session) error {
				res := s.validator().Validate(s.root)
				printValidation(s, res, report || s.verbose)
				if !res.Valid() {
					return &ExitError{Code: ExitCheckFailed}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&report, "report", false, "print the full validation report")
	return cmd
}

// newRepairCommand creates the `melonpatch repair` command.
func newRepairCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Recreate missing directories and validate again",
		Long: `Recreate missing canonical directories and validate again.

Repair never downloads or restores runtime files; when those are missing,
install the loader again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "repair", func(_ context.Context, s *session) error {
				rep, ok := s.validator().Repair(s.root)
				s.printf("%s recreated %d director%s\n", SuccessStyle.Render(successIcon), len(rep.Init.Created), plural(len(rep.Init.Created), "y", "ies"))
				printValidation(s, rep.Result, s.verbose)
				if !ok {
					return &ExitError{Code: ExitCheckFailed}
				}
				return nil
			})
		},
	}
}

func printValidation(s *session, res *validate.Result, full bool) {
	state := res.State().String()
	if res.Valid() {
		s.printf("%s %s %s\n", SuccessStyle.Render(successIcon), TitleStyle.Render("Installation:"), SuccessStyle.Render(state))
	} else {
		s.printf("%s %s %s\n", ErrorStyle.Render(failIcon), TitleStyle.Render("Installation:"), ErrorStyle.Render(state))
	}
	s.printf("  %s %s\n", SubtitleStyle.Render("game root:"), CmdStyle.Render(s.root.Dir()))

	if full {
		s.println(reportBoxStyle.Render(strings.TrimRight(validate.Report(res), "\n")))
		return
	}
	for _, d := range res.Deficiencies {
		s.printf("  %s %s\n", WarningStyle.Render(warnIcon), d)
	}
	if !res.Valid() {
		s.println(SubtitleStyle.Render("  run 'melonpatch validate --report' for the full report"))
	}
}
