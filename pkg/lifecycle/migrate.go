// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

// Legacy flat directories under the application's storage root.
const (
	LegacyModsDir = "mods"
	LegacyLogsDir = "logs"
)

// MigrationReport describes the outcome of Migrate.
type MigrationReport struct {
	// Moved counts files relocated into the canonical tree.
	Moved int
	// Failed lists legacy files that could not be moved.
	Failed []string
	// Init is the result of the final Initialize call.
	Init Result
}

// NeedsMigration reports whether storage holds a non-empty legacy mods or logs
// directory while root has not been created yet.
func (l *Lifecycle) NeedsMigration(storage string, root layout.GameRoot) bool {
	if _, err := os.Stat(root.Dir()); err == nil {
		return false
	}
	return hasEntries(filepath.Join(storage, LegacyModsDir)) || hasEntries(filepath.Join(storage, LegacyLogsDir))
}

// Migrate moves legacy mods and logs from storage into root, then initializes
// the canonical tree. A file that cannot be moved is logged and recorded in
// the report; the remaining files are still processed.
func (l *Lifecycle) Migrate(storage string, root layout.GameRoot) MigrationReport {
	var rep MigrationReport
	l.migrateMods(storage, root, &rep)
	l.migrateLogs(storage, root, &rep)
	rep.Init = l.Initialize(root)
	l.logger.Info("migration finished", "moved", rep.Moved, "failed", len(rep.Failed))
	return rep
}

func (l *Lifecycle) migrateMods(storage string, root layout.GameRoot, rep *MigrationReport) {
	src := filepath.Join(storage, LegacyModsDir)
	entries, err := os.ReadDir(src)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("cannot read legacy mods", "dir", src, "err", err)
		}
		return
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		role := layout.RoleModDEX
		if isDLLName(e.Name()) {
			role = layout.RoleModDLL
		}
		from := filepath.Join(src, e.Name())
		to := root.Path(role, 0, e.Name())
		if err := moveFile(from, to); err != nil {
			l.logger.Warn("cannot migrate mod", "file", from, "err", err)
			rep.Failed = append(rep.Failed, from)
			continue
		}
		rep.Moved++
	}
}

func (l *Lifecycle) migrateLogs(storage string, root layout.GameRoot, rep *MigrationReport) {
	src := filepath.Join(storage, LegacyLogsDir)
	entries, err := os.ReadDir(src)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("cannot read legacy logs", "dir", src, "err", err)
		}
		return
	}

	type logFile struct {
		name string
		mod  int64
	}
	var logs []logFile
	for _, e := range entries {
		if !e.Type().IsRegular() || !isLegacyLogName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			rep.Failed = append(rep.Failed, filepath.Join(src, e.Name()))
			continue
		}
		logs = append(logs, logFile{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	// Newest first, so it receives the lowest free number.
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].mod != logs[j].mod {
			return logs[i].mod > logs[j].mod
		}
		return logs[i].name < logs[j].name
	})

	next := 1
	for _, lf := range logs {
		var to string
		for {
			to = root.Path(layout.RoleAppLog, 0, fmt.Sprintf("AppLog%d.txt", next))
			next++
			if _, err := os.Stat(to); errors.Is(err, os.ErrNotExist) {
				break
			}
		}
		from := filepath.Join(src, lf.name)
		if err := moveFile(from, to); err != nil {
			l.logger.Warn("cannot migrate log", "file", from, "err", err)
			rep.Failed = append(rep.Failed, from)
			continue
		}
		rep.Moved++
	}
}

func isDLLName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".dll") || strings.HasSuffix(lower, ".dll.disabled")
}

func isLegacyLogName(name string) bool {
	return strings.HasSuffix(name, ".txt") || strings.HasPrefix(name, "auto_save_")
}

func hasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// moveFile renames from to to, falling back to copy and remove when a rename
// is not possible (e.g. across filesystems). An existing destination is never
// overwritten.
func moveFile(from, to string) (err error) {
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("destination already exists: %s", to)
	}
	if err := os.MkdirAll(filepath.Dir(to), dirPerm); err != nil {
		return err
	}
	if os.Rename(from, to) == nil {
		return nil
	}

	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(to, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(to)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	_ = in.Close()
	return os.Remove(from)
}
