// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"github.com/melonpatch/melonpatch/pkg/classify"
	"github.com/melonpatch/melonpatch/pkg/layout"
	"github.com/melonpatch/melonpatch/pkg/progress"
)

const copyBufferSize = 32 * 1024

type (
	// Extractor writes classified archive entries under a GameRoot.
	Extractor struct {
		classifier *classify.Classifier
		logger     *log.Logger
		reporter   progress.Reporter
		tempDir    string
	}

	// Option configures an Extractor.
	Option func(*Extractor)

	// Report summarizes one extraction.
	Report struct {
		// Written counts entries copied into the tree.
		Written int
		// Skipped counts directories and entries rejected by the classifier.
		Skipped int
		// Failed counts accepted entries that could not be written.
		Failed int
		// Files lists written destinations relative to the GameRoot.
		Files []string
		// ByRule counts written entries per classification rule.
		ByRule map[classify.Rule]int
	}
)

// WithClassifier replaces the default classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(e *Extractor) { e.classifier = c }
}

// WithLogger sets the logger used for per-entry failures.
func WithLogger(l *log.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithProgress sets the status sink.
func WithProgress(r progress.Reporter) Option {
	return func(e *Extractor) { e.reporter = r }
}

// WithTempDir sets where streamed archives are spooled.
func WithTempDir(dir string) Option {
	return func(e *Extractor) { e.tempDir = dir }
}

// New returns an Extractor using the default classifier.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		classifier: classify.Default(),
		logger:     log.New(io.Discard),
		reporter:   progress.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract spools src to a temporary file and extracts it into root. The
// temporary file is removed before Extract returns.
func (e *Extractor) Extract(ctx context.Context, src io.Reader, root layout.GameRoot, variant layout.Variant) (rep *Report, err error) {
	tmp, err := os.CreateTemp(e.tempDir, "melonpatch-*.zip")
	if err != nil {
		e.reporter.Fail(err)
		return nil, fmt.Errorf("failed to create temporary archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // Best-effort cleanup of temp file

	_, err = io.Copy(tmp, src)
	if closeErr := tmp.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		e.reporter.Fail(err)
		return nil, fmt.Errorf("failed to read archive stream: %w", err)
	}

	return e.ExtractFile(ctx, tmpPath, root, variant)
}

// ExtractFile extracts the zip archive at archivePath into root.
func (e *Extractor) ExtractFile(ctx context.Context, archivePath string, root layout.GameRoot, variant layout.Variant) (*Report, error) {
	rep := &Report{ByRule: make(map[classify.Rule]int)}
	err := progress.Track(e.reporter, func(r progress.Reporter) (string, error) {
		if err := e.extract(ctx, archivePath, root, variant, rep, r); err != nil {
			return "", err
		}
		return fmt.Sprintf("extracted %d files (%d skipped, %d failed)", rep.Written, rep.Skipped, rep.Failed), nil
	})
	if err != nil {
		return rep, err
	}
	return rep, nil
}

func (e *Extractor) extract(ctx context.Context, archivePath string, root layout.GameRoot, variant layout.Variant, rep *Report, r progress.Reporter) (err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open ZIP file: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err = os.MkdirAll(root.Dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create game root: %w", err)
	}
	absRoot, err := canonicalDir(root.Dir())
	if err != nil {
		return err
	}

	buf := make([]byte, copyBufferSize)
	total := len(zr.File)
	for i, f := range zr.File {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("extraction canceled: %w", err)
		}
		if reason := unsafeName(f.Name); reason != "" {
			return &SecurityError{Entry: f.Name, Reason: reason}
		}
		if f.FileInfo().IsDir() {
			rep.Skipped++
			continue
		}

		d := e.classifier.Classify(f.Name, variant)
		if d.Skip {
			rep.Skipped++
			e.logger.Debug("skipping entry", "entry", f.Name)
			continue
		}

		dest := filepath.Join(absRoot, filepath.FromSlash(d.Path))
		rel, relErr := filepath.Rel(absRoot, dest)
		if relErr != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return &SecurityError{Entry: f.Name, Reason: "resolves outside the extraction root"}
		}

		if werr := writeEntry(f, dest, buf); werr != nil {
			rep.Failed++
			e.logger.Warn("cannot extract entry", "entry", f.Name, "dest", dest, "err", werr)
			continue
		}
		rep.Written++
		rep.ByRule[d.Rule]++
		rep.Files = append(rep.Files, d.Path)
		r.Progress("extracted "+d.Path, progress.Percent(i+1, total))
	}
	return nil
}

// unsafeName returns a non-empty reason when an entry name is absolute or
// contains a parent-directory segment.
func unsafeName(name string) string {
	n := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(n, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "uses an absolute path"
	}
	if slices.Contains(strings.Split(n, "/"), "..") {
		return "contains a parent directory reference"
	}
	return ""
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve extraction root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve extraction root: %w", err)
	}
	return resolved, nil
}

func writeEntry(f *zip.File, dest string, buf []byte) (err error) {
	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	//nolint:gosec // G110: entry sizes are bounded by the archive supplied by the user
	_, err = io.CopyBuffer(out, rc, buf)
	return err
}
