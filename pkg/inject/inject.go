// SPDX-License-Identifier: MPL-2.0

package inject

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"github.com/melonpatch/melonpatch/pkg/progress"
)

// ErrNothingToInject is returned when a plan is empty or none of its files
// could be written.
var ErrNothingToInject = errors.New("no runtime files to inject")

// DefaultMarkers are the reserved runtime names. Source entries containing
// any of them are dropped before injection.
var DefaultMarkers = []string{"MelonLoader", "0Harmony", "MonoMod"}

type (
	// Injector rewrites application packages.
	Injector struct {
		manifest Manifest
		markers  []string
		logger   *log.Logger
		reporter progress.Reporter
	}

	// Option configures an Injector.
	Option func(*Injector)

	// Report summarizes one injection.
	Report struct {
		// Copied counts original entries carried over unchanged.
		Copied int
		// Dropped counts original entries removed as reserved.
		Dropped int
		// Injected counts runtime files written.
		Injected int
		// Failed lists planned files that could not be read.
		Failed []string
		// Entries is the total entry count of the new package.
		Entries int
	}
)

// WithManifest sets the manifest written into the package.
func WithManifest(m Manifest) Option {
	return func(i *Injector) { i.manifest = m }
}

// WithMarkers replaces DefaultMarkers.
func WithMarkers(markers ...string) Option {
	return func(i *Injector) { i.markers = markers }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(i *Injector) { i.logger = l }
}

// WithProgress sets the status sink.
func WithProgress(r progress.Reporter) Option {
	return func(i *Injector) { i.reporter = r }
}

// New returns an Injector with the default manifest and markers.
func New(opts ...Option) *Injector {
	i := &Injector{
		manifest: DefaultManifest(),
		markers:  DefaultMarkers,
		logger:   log.New(io.Discard),
		reporter: progress.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Reserved reports whether name contains one of the injector's markers.
func (i *Injector) Reserved(name string) bool {
	for _, m := range i.markers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// Inject writes a copy of source to destination with plan's files and the
// manifest entries appended. destination is only replaced on success.
func (i *Injector) Inject(ctx context.Context, source, destination string, plan Plan) (*Report, error) {
	rep := &Report{}
	err := progress.Track(i.reporter, func(r progress.Reporter) (string, error) {
		if len(plan.Files) == 0 {
			return "", ErrNothingToInject
		}
		if err := i.inject(ctx, source, destination, plan, rep, r); err != nil {
			return "", err
		}
		return fmt.Sprintf("injected %d files into %s", rep.Injected, filepath.Base(destination)), nil
	})
	if err != nil {
		return rep, err
	}
	return rep, nil
}

func (i *Injector) inject(ctx context.Context, source, destination string, plan Plan, rep *Report, r progress.Reporter) (err error) {
	if sameFile(source, destination) {
		return fmt.Errorf("destination %s must differ from source", destination)
	}

	zr, err := zip.OpenReader(source)
	if err != nil {
		return fmt.Errorf("failed to open package: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	tmp, err := os.CreateTemp(filepath.Dir(destination), ".melonpatch-*.apk")
	if err != nil {
		return fmt.Errorf("failed to create output package: %w", err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = tmp.Close()        // Best-effort; may already be closed
			_ = os.Remove(tmpPath) // Best-effort cleanup of partial output
		}
	}()

	zw := zip.NewWriter(tmp)
	planned := plan.Destinations()

	total := len(zr.File) + len(plan.Files) + 2
	step := 0
	for _, f := range zr.File {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("injection canceled: %w", err)
		}
		step++
		if i.Reserved(f.Name) || planned[f.Name] || f.Name == BootstrapEntry || f.Name == ConfigEntry {
			rep.Dropped++
			i.logger.Debug("dropping reserved entry", "entry", f.Name)
			continue
		}
		if err = zw.Copy(f); err != nil {
			return fmt.Errorf("failed to copy entry %s: %w", f.Name, err)
		}
		rep.Copied++
		r.Progress("copied "+f.Name, progress.Percent(step, total))
	}

	for _, pf := range plan.Files {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("injection canceled: %w", err)
		}
		step++
		if werr := addFile(zw, pf); werr != nil {
			if errors.Is(werr, errEntryStarted) {
				return werr
			}
			rep.Failed = append(rep.Failed, pf.Source)
			i.logger.Warn("cannot inject file", "file", pf.Source, "err", werr)
			continue
		}
		rep.Injected++
		r.Progress("injected "+pf.Destination, progress.Percent(step, total))
	}
	if rep.Injected == 0 {
		return ErrNothingToInject
	}

	if err = i.addManifests(zw); err != nil {
		return err
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize package: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to finalize package: %w", err)
	}
	if err = os.Rename(tmpPath, destination); err != nil {
		return fmt.Errorf("failed to move package into place: %w", err)
	}
	renamed = true

	rep.Entries = rep.Copied + rep.Injected + 2
	i.logger.Info("package patched",
		"source", source,
		"destination", destination,
		"copied", rep.Copied,
		"dropped", rep.Dropped,
		"injected", rep.Injected)
	return nil
}

func (i *Injector) addManifests(zw *zip.Writer) error {
	script, err := i.manifest.Bootstrap()
	if err != nil {
		return err
	}
	cfg, err := i.manifest.JSON()
	if err != nil {
		return err
	}
	for _, e := range []struct {
		name string
		data []byte
	}{
		{BootstrapEntry, script},
		{ConfigEntry, cfg},
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	return nil
}

// errEntryStarted marks a failure after an entry header was written; the
// archive cannot be recovered at that point.
var errEntryStarted = errors.New("entry partially written")

func addFile(zw *zip.Writer, pf PlannedFile) (err error) {
	in, err := os.Open(pf.Source)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = pf.Destination
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errEntryStarted, pf.Destination, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("%w: %s: %w", errEntryStarted, pf.Destination, err)
	}
	return nil
}

// IsPatched reports whether the package at path already carries the runtime.
// Only entry names are read; the scan stops at the first reserved name.
func (i *Injector) IsPatched(path string) (patched bool, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false, fmt.Errorf("failed to open package: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, f := range zr.File {
		if i.Reserved(f.Name) || f.Name == ConfigEntry || f.Name == BootstrapEntry {
			return true, nil
		}
	}
	return false, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
