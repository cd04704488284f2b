// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

const (
	backupPrefix = "mods_"
	backupLayout = "20060102_150405"
)

// BackupReport describes one backup.
type BackupReport struct {
	// Dir is the backup directory.
	Dir string
	// Files counts copied mod files.
	Files int
}

// Backup copies both mod buckets into Backups/mods_<timestamp>. Disabled mods
// are copied under their disabled name.
func (m *Manager) Backup() (BackupReport, error) {
	backups := m.root.Path(layout.RoleBackup, 0, "")
	if err := os.MkdirAll(backups, 0o755); err != nil {
		return BackupReport{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	dir, err := reserveDir(backups, backupPrefix+m.clock.Now().Format(backupLayout))
	if err != nil {
		return BackupReport{}, err
	}
	rep := BackupReport{Dir: dir}

	for _, role := range []layout.Role{layout.RoleModDLL, layout.RoleModDEX} {
		src := m.root.Path(role, 0, "")
		entries, err := os.ReadDir(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return rep, fmt.Errorf("failed to read %s: %w", src, err)
		}
		dest := filepath.Join(dir, filepath.Base(src))
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if _, _, _, err := Identify(e.Name()); err != nil {
				continue
			}
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return rep, fmt.Errorf("failed to create %s: %w", dest, err)
			}
			if err := copyFile(filepath.Join(src, e.Name()), filepath.Join(dest, e.Name())); err != nil {
				return rep, fmt.Errorf("failed to back up %s: %w", e.Name(), err)
			}
			rep.Files++
		}
	}
	m.logger.Info("mods backed up", "dir", dir, "files", rep.Files)
	return rep, nil
}

// Backups returns the backup directories, oldest first.
func (m *Manager) Backups() ([]string, error) {
	backups := m.root.Path(layout.RoleBackup, 0, "")
	entries, err := os.ReadDir(backups)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) {
			dirs = append(dirs, filepath.Join(backups, e.Name()))
		}
	}
	// Timestamps sort lexically.
	sort.Strings(dirs)
	return dirs, nil
}

// CleanupBackups removes all but the newest keep backups and returns the
// removed directories. A negative keep is treated as zero.
func (m *Manager) CleanupBackups(keep int) ([]string, error) {
	dirs, err := m.Backups()
	if err != nil {
		return nil, err
	}
	keep = max(keep, 0)
	if len(dirs) <= keep {
		return nil, nil
	}

	var removed []string
	var errs []error
	for _, dir := range dirs[:len(dirs)-keep] {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", dir, err))
			continue
		}
		removed = append(removed, dir)
	}
	if len(removed) > 0 {
		m.logger.Info("old backups removed", "count", len(removed))
	}
	return removed, errors.Join(errs...)
}

// reserveDir creates parent/name, appending _1, _2, ... when it exists.
func reserveDir(parent, name string) (string, error) {
	candidate := name
	for i := 1; ; i++ {
		dir := filepath.Join(parent, candidate)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to create backup %s: %w", dir, err)
		}
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
}
