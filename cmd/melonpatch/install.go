// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/melonpatch/melonpatch/internal/config"
	"github.com/melonpatch/melonpatch/internal/fetch"
	"github.com/melonpatch/melonpatch/internal/issue"
	"github.com/melonpatch/melonpatch/pkg/classify"
	"github.com/melonpatch/melonpatch/pkg/extract"
	"github.com/melonpatch/melonpatch/pkg/layout"

	"github.com/spf13/cobra"
)

type installOptions struct {
	url      string
	download bool
	tag      string
	sha256   string
	variant  string
}

// newInstallCommand creates the `melonpatch install` command.
func newInstallCommand(app *App) *cobra.Command {
	var opts installOptions
	cmd := &cobra.Command{
		Use:   "install [archive.zip]",
		Short: "Extract a MelonLoader archive into the game root",
		Long: `Extract a MelonLoader distribution archive into the game root.

The archive comes from exactly one source:
  - a local zip file argument
  - --url, downloaded over HTTP
  - --download, resolved from the GitHub releases of download.repo
    (or download.url when it is configured)

--variant selects the runtime directory (modern, legacy or auto); auto
inspects the archive's file names.

Examples:
  melonpatch install ./MelonLoader.x64.zip
  melonpatch install --url https://example.com/MelonLoader.zip --sha256 <hex>
  melonpatch install --download --tag v0.6.5 --variant auto`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, "install", func(ctx context.Context, s *session) error {
				return runInstall(ctx, app, s, opts, args)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "", "download the archive from this URL")
	f.BoolVar(&opts.download, "download", false, "download the archive from the configured release source")
	f.StringVar(&opts.tag, "tag", "", "release tag for --download (default: download.tag, or the latest release)")
	f.StringVar(&opts.sha256, "sha256", "", "expected SHA-256 of the downloaded archive (default: download.sha256)")
	f.StringVar(&opts.variant, "variant", "", "runtime variant: modern, legacy or auto (default: default_variant)")
	return cmd
}

func runInstall(ctx context.Context, app *App, s *session, opts installOptions, args []string) error {
	sources := 0
	for _, set := range []bool{len(args) == 1, opts.url != "", opts.download} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("pass exactly one of an archive path, --url or --download")
	}

	archive, cleanup, err := resolveArchive(ctx, app, s, opts, args)
	if err != nil {
		return err
	}
	defer cleanup()

	variant, err := resolveVariant(s, opts.variant, archive)
	if err != nil {
		return err
	}

	if res := s.lifecycle().Initialize(s.root); !res.OK {
		s.logger.Warn("some canonical directories could not be created", "failed", res.Failed)
	}

	ex := extract.New(extract.WithLogger(s.logger), extract.WithProgress(s.reporter("extract")))
	rep, err := ex.ExtractFile(ctx, archive, s.root, variant)
	if rep != nil {
		recordExtraction(s, rep)
	}
	if err != nil {
		return actionable(err, "install loader", archive, "Download the archive again from the official release page")
	}

	s.printf("%s installed %s runtime into %s\n", SuccessStyle.Render(successIcon), variant, CmdStyle.Render(s.root.Dir()))
	s.printf("  written %d, skipped %d, failed %d\n", rep.Written, rep.Skipped, rep.Failed)
	if s.verbose {
		rules := make([]classify.Rule, 0, len(rep.ByRule))
		for rule := range rep.ByRule {
			rules = append(rules, rule)
		}
		slices.Sort(rules)
		for _, rule := range rules {
			s.printf("  %s %d\n", VerboseStyle.Render(string(rule)+":"), rep.ByRule[rule])
		}
	}

	res := s.validator().Validate(s.root)
	if res.Valid() {
		s.printf("%s installation is valid\n", SuccessStyle.Render(successIcon))
		return nil
	}
	s.printf("%s installation is incomplete, run 'melonpatch validate --report' for details\n", WarningStyle.Render(warnIcon))
	return nil
}

// resolveArchive returns a local archive path for the selected source. The
// cleanup func removes downloaded files.
func resolveArchive(ctx context.Context, app *App, s *session, opts installOptions, args []string) (string, func(), error) {
	noop := func() {}

	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil || info.IsDir() {
			if err == nil {
				err = fmt.Errorf("%s is a directory", args[0])
			}
			return "", noop, issue.NewErrorContext().
				WithOperation("open loader archive").
				WithResource(args[0]).
				WithSuggestion("Check the path of the zip file").
				WithIssue(issue.ArchiveNotFoundId).
				Wrap(err).
				BuildError()
		}
		return args[0], noop, nil
	}

	url := opts.url
	if opts.download {
		var err error
		if url, err = resolveDownloadURL(ctx, app, s.cfg, opts.tag); err != nil {
			return "", noop, actionable(err, "resolve loader release", s.cfg.Download.Repo,
				"Check download.repo, download.tag and download.asset",
				"Set MELONPATCH_DOWNLOAD_TOKEN when the GitHub API rate limit is exceeded")
		}
	}

	timeout, err := s.cfg.DownloadTimeout()
	if err != nil {
		return "", noop, err
	}
	sum := opts.sha256
	if sum == "" {
		sum = s.cfg.Download.SHA256
	}

	dl := fetch.NewDownloader(
		fetch.WithClient(app.HTTPClient),
		fetch.WithTimeout(timeout),
		fetch.WithLogger(s.logger),
		fetch.WithProgress(s.reporter("download")),
	)
	path, err := dl.ToTempFile(ctx, url, "", sum)
	if err != nil {
		return "", noop, actionable(err, "download loader archive", url, "Check the URL and your network connection")
	}
	return path, func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove downloaded archive", "path", path, "err", rmErr)
		}
	}, nil
}

// resolveDownloadURL returns download.url when set, otherwise the URL of
// download.asset in the release tagged tag (download.tag, or the latest).
func resolveDownloadURL(ctx context.Context, app *App, cfg *config.Config, tag string) (string, error) {
	if cfg.Download.URL != "" {
		return cfg.Download.URL, nil
	}
	if tag == "" {
		tag = cfg.Download.Tag
	}
	client := fetch.NewReleaseClient(
		fetch.WithHTTPClient(app.HTTPClient),
		fetch.WithRepo(cfg.Download.Repo),
		fetch.WithToken(cfg.Download.Token),
		fetch.WithUserAgent(config.AppName+"/"+Version),
	)
	asset, err := client.Resolve(ctx, tag, cfg.Download.Asset)
	if err != nil {
		return "", err
	}
	return asset.BrowserDownloadURL, nil
}

// resolveVariant turns a variant choice into a Variant, detecting it from
// the archive for "auto". An empty choice means default_variant.
func resolveVariant(s *session, choice, archive string) (layout.Variant, error) {
	if choice == "" {
		choice = s.cfg.DefaultVariant
	}
	if choice != config.VariantAuto {
		return layout.ParseVariant(choice)
	}
	v, err := extract.DetectVariant(archive)
	if err != nil {
		return 0, actionable(err, "detect runtime variant", archive, "Pass --variant modern or --variant legacy explicitly")
	}
	s.logger.Info("detected runtime variant", "variant", v)
	return v, nil
}

func recordExtraction(s *session, rep *extract.Report) {
	for rule, n := range rep.ByRule {
		s.metrics.AddExtracted(string(rule), n)
	}
	s.metrics.AddSkipped(rep.Skipped)
}
