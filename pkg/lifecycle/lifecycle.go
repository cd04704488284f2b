// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

const (
	readmeName = "README.txt"
	dirPerm    = 0o755
	filePerm   = 0o644
)

type (
	// Lifecycle manages the canonical tree. The zero value is not usable; call New.
	Lifecycle struct {
		logger *log.Logger
	}

	// Result describes the outcome of Initialize.
	Result struct {
		// OK is true when every canonical directory exists afterwards.
		OK bool
		// Created lists directories that did not exist before the call.
		Created []string
		// Failed lists directories that could not be created.
		Failed []string
	}
)

// New returns a Lifecycle that logs to logger. A nil logger discards output.
func New(logger *log.Logger) *Lifecycle {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Lifecycle{logger: logger}
}

// Initialize creates every canonical directory under root. Existing
// directories are left untouched, so repeated calls are safe. README files
// are written into the user-facing directories on a best-effort basis.
func (l *Lifecycle) Initialize(root layout.GameRoot) Result {
	var res Result
	for _, rel := range layout.Directories() {
		dir := root.Rel(rel)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			continue
		}
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			l.logger.Warn("cannot create directory", "dir", dir, "err", err)
			res.Failed = append(res.Failed, dir)
			continue
		}
		res.Created = append(res.Created, dir)
	}
	res.OK = len(res.Failed) == 0
	if res.OK {
		l.writeReadmes(root)
	}
	l.logger.Debug("initialized game root", "root", root.Dir(), "created", len(res.Created), "failed", len(res.Failed))
	return res
}

func (l *Lifecycle) writeReadmes(root layout.GameRoot) {
	for _, role := range layout.UserFacingDirs() {
		dir := root.Path(role, 0, "")
		path := filepath.Join(dir, readmeName)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(readmeText(role, dir)), filePerm); err != nil {
			l.logger.Debug("cannot write readme", "path", path, "err", err)
		}
	}
}

// Uninstall removes the whole game subtree. It is the only operation that
// deletes canonical directories.
func (l *Lifecycle) Uninstall(root layout.GameRoot) error {
	if ok, errs := root.Package.IsValid(); !ok {
		return errors.Join(errs...)
	}
	dir := root.Dir()
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove game root %s: %w", dir, err)
	}
	l.logger.Info("uninstalled game root", "root", dir)
	return nil
}
