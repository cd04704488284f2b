// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/melonpatch/melonpatch/internal/issue"
	"github.com/melonpatch/melonpatch/pkg/inject"
	"github.com/melonpatch/melonpatch/pkg/layout"

	"github.com/spf13/cobra"
)

// newPatchCommand creates the `melonpatch patch` command.
func newPatchCommand(app *App) *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "patch <source.apk> <dest.apk>",
		Short: "Inject the installed runtime into an application package",
		Long: `Write a copy of an application package with the installed loader runtime
injected under lib/<abi>/ plus a bootstrap marker and a loader config entry.

Runtime entries already present in the source package are dropped, so
patching an already patched package is safe. The source is never modified.

Examples:
  melonpatch patch game.apk game-patched.apk
  melonpatch patch game.apk game-patched.apk --variant legacy`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, "patch", func(ctx context.Context, s *session) error {
				return runPatch(ctx, s, args[0], args[1], variant)
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "runtime variant to inject: modern or legacy (default: the active runtime)")
	return cmd
}

func runPatch(ctx context.Context, s *session, source, dest, variantFlag string) error {
	if info, err := os.Stat(source); err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", source)
		}
		return issue.NewErrorContext().
			WithOperation("open package").
			WithResource(source).
			WithSuggestion("Check the path of the APK file").
			WithIssue(issue.PackageNotFoundId).
			Wrap(err).
			BuildError()
	}

	plan, err := buildPlan(s, variantFlag)
	if err != nil {
		return err
	}

	inj := inject.New(
		inject.WithManifest(s.cfg.Manifest()),
		inject.WithLogger(s.logger),
		inject.WithProgress(s.reporter("patch")),
	)
	rep, err := inj.Inject(ctx, source, dest, plan)
	if rep != nil {
		s.metrics.AddInjected(rep.Injected)
	}
	if err != nil {
		return actionable(err, "patch package", source, "Run 'melonpatch preview' to see what would be injected")
	}

	s.printf("%s patched %s -> %s\n", SuccessStyle.Render(successIcon), source, CmdStyle.Render(dest))
	s.printf("  runtime %s, injected %d, kept %d, replaced %d, entries %d\n",
		plan.Variant, rep.Injected, rep.Copied, rep.Dropped, rep.Entries)
	for _, f := range rep.Failed {
		s.printf("  %s could not read %s\n", WarningStyle.Render(warnIcon), f)
	}
	return nil
}

// buildPlan builds the injection plan for the flag's variant, or for the
// active runtime of the validated installation when the flag is empty.
func buildPlan(s *session, variantFlag string) (inject.Plan, error) {
	var variant layout.Variant
	if variantFlag != "" {
		v, err := layout.ParseVariant(variantFlag)
		if err != nil {
			return inject.Plan{}, err
		}
		variant = v
	} else {
		res := s.validator().Validate(s.root)
		if res.Active == nil {
			return inject.Plan{}, issue.NewErrorContext().
				WithOperation("select runtime").
				WithResource(s.root.Dir()).
				WithSuggestion("Install the loader with 'melonpatch install'").
				WithSuggestion("Run 'melonpatch validate --report' to see which files are missing").
				WithIssue(issue.RuntimeNotInstalledId).
				Wrap(errors.New("no runtime variant has enough files")).
				BuildError()
		}
		variant = *res.Active
	}

	plan, err := inject.BuildPlan(s.root, variant, s.cfg.Inject.ABI)
	if err != nil {
		return inject.Plan{}, issue.NewErrorContext().
			WithOperation("plan injection").
			WithResource(s.root.Dir()).
			WithSuggestion("Install the loader with 'melonpatch install'").
			WithIssue(issue.RuntimeNotInstalledId).
			Wrap(err).
			BuildError()
	}
	return plan, nil
}

// newIsPatchedCommand creates the `melonpatch is-patched` command.
func newIsPatchedCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "is-patched <package.apk>",
		Short: "Report whether a package already carries the runtime",
		Long: `Report whether a package already carries the runtime.

Exits with status 0 when the package is patched and 2 when it is not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, "is-patched", func(_ context.Context, s *session) error {
				patched, err := inject.New(inject.WithLogger(s.logger)).IsPatched(args[0])
				if err != nil {
					return issue.NewErrorContext().
						WithOperation("inspect package").
						WithResource(args[0]).
						WithSuggestion("Check that the file is a valid APK (zip) archive").
						WithIssue(issue.PackageNotFoundId).
						Wrap(err).
						BuildError()
				}
				if patched {
					s.printf("%s %s is patched\n", SuccessStyle.Render(successIcon), args[0])
					return nil
				}
				s.printf("%s %s is not patched\n", WarningStyle.Render(warnIcon), args[0])
				return &ExitError{Code: ExitCheckFailed}
			})
		},
	}
}

// newPreviewCommand creates the `melonpatch preview` command.
func newPreviewCommand(app *App) *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what patch would inject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, "preview", func(_ context.Context, s *session) error {
				plan, err := buildPlan(s, variant)
				if err != nil {
					return err
				}
				s.println(TitleStyle.Render("Injection preview"))
				s.println(reportBoxStyle.Render(strings.TrimRight(inject.Preview(plan), "\n")))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "runtime variant: modern or legacy (default: the active runtime)")
	return cmd
}
