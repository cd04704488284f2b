// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

func newRoot(t *testing.T) layout.GameRoot {
	t.Helper()
	root, err := layout.NewGameRoot(filepath.Join(t.TempDir(), "Games"), layout.DefaultPackage)
	if err != nil {
		t.Fatalf("NewGameRoot() error = %v", err)
	}
	return root
}

func listDirs(t *testing.T, dir string) []string {
	t.Helper()
	var dirs []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			dirs = append(dirs, rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir() error = %v", err)
	}
	return dirs
}

func TestInitialize_Idempotent(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	lc := New(nil)

	first := lc.Initialize(root)
	if !first.OK || len(first.Failed) != 0 {
		t.Fatalf("first Initialize() = %+v", first)
	}
	if len(first.Created) != len(layout.Directories()) {
		t.Errorf("created %d directories, want %d", len(first.Created), len(layout.Directories()))
	}
	before := listDirs(t, root.Dir())

	second := lc.Initialize(root)
	if !second.OK {
		t.Fatalf("second Initialize() = %+v", second)
	}
	if len(second.Created) != 0 {
		t.Errorf("second Initialize() created %v", second.Created)
	}
	if after := listDirs(t, root.Dir()); !slices.Equal(before, after) {
		t.Errorf("directory set changed:\nbefore %v\nafter  %v", before, after)
	}
}

func TestInitialize_WritesReadmes(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	New(nil).Initialize(root)

	for _, role := range layout.UserFacingDirs() {
		path := root.Path(role, 0, readmeName)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("missing readme for %s: %v", role, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("empty readme for %s", role)
		}
	}

	// User edits are preserved.
	custom := root.Path(layout.RoleModDLL, 0, readmeName)
	if err := os.WriteFile(custom, []byte("mine"), 0o644); err != nil {
		t.Fatal(err)
	}
	New(nil).Initialize(root)
	if data, _ := os.ReadFile(custom); string(data) != "mine" {
		t.Errorf("readme overwritten: %q", data)
	}
}

func TestInitialize_ReportsFailures(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	// A regular file where the Mods directory belongs blocks its subtree.
	if err := os.MkdirAll(root.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(root.Rel(layout.ModsDir), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	res := New(nil).Initialize(root)
	if res.OK {
		t.Fatal("Initialize() OK = true, want false")
	}
	if !slices.Contains(res.Failed, root.Path(layout.RoleModDLL, 0, "")) {
		t.Errorf("Failed = %v, want it to contain Mods/DLL", res.Failed)
	}
	if _, err := os.Stat(root.LoaderDir()); err != nil {
		t.Errorf("unrelated directories should still be created: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	storage := t.TempDir()
	root, err := layout.NewGameRoot(filepath.Join(storage, "Games"), layout.DefaultPackage)
	if err != nil {
		t.Fatal(err)
	}
	lc := New(nil)

	if lc.NeedsMigration(storage, root) {
		t.Fatal("NeedsMigration() = true with no legacy directories")
	}

	writeFile(t, filepath.Join(storage, LegacyModsDir, "Cool.dex"), "dex")
	writeFile(t, filepath.Join(storage, LegacyModsDir, "Native.dll"), "MZ")
	oldLog := writeFile(t, filepath.Join(storage, LegacyLogsDir, "old.txt"), "old")
	newLog := writeFile(t, filepath.Join(storage, LegacyLogsDir, "new.txt"), "new")
	writeFile(t, filepath.Join(storage, LegacyLogsDir, "ignored.bin"), "x")
	now := time.Now()
	if err := os.Chtimes(oldLog, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newLog, now, now); err != nil {
		t.Fatal(err)
	}

	if !lc.NeedsMigration(storage, root) {
		t.Fatal("NeedsMigration() = false, want true")
	}

	rep := lc.Migrate(storage, root)
	if rep.Moved != 4 {
		t.Errorf("Moved = %d, want 4 (failed: %v)", rep.Moved, rep.Failed)
	}
	if !rep.Init.OK {
		t.Errorf("Init = %+v", rep.Init)
	}

	assertContent(t, root.Path(layout.RoleModDEX, 0, "Cool.dex"), "dex")
	assertContent(t, root.Path(layout.RoleModDLL, 0, "Native.dll"), "MZ")
	assertContent(t, root.Path(layout.RoleAppLog, 0, "AppLog1.txt"), "new")
	assertContent(t, root.Path(layout.RoleAppLog, 0, "AppLog2.txt"), "old")

	if lc.NeedsMigration(storage, root) {
		t.Error("NeedsMigration() = true after migration")
	}
}

func TestMigrate_PartialFailureContinues(t *testing.T) {
	t.Parallel()

	storage := t.TempDir()
	root, err := layout.NewGameRoot(filepath.Join(storage, "Games"), layout.DefaultPackage)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(storage, LegacyModsDir, "a.dex"), "a")
	writeFile(t, filepath.Join(storage, LegacyModsDir, "b.dex"), "b")
	// Pre-existing destination for a.dex makes that single move fail.
	writeFile(t, root.Path(layout.RoleModDEX, 0, "a.dex"), "keep")

	rep := New(nil).Migrate(storage, root)
	if rep.Moved != 1 || len(rep.Failed) != 1 {
		t.Fatalf("Migrate() = %+v, want 1 moved and 1 failed", rep)
	}
	assertContent(t, root.Path(layout.RoleModDEX, 0, "a.dex"), "keep")
	assertContent(t, root.Path(layout.RoleModDEX, 0, "b.dex"), "b")
}

func TestUninstall(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	lc := New(nil)
	lc.Initialize(root)

	if err := lc.Uninstall(root); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if _, err := os.Stat(root.Dir()); !os.IsNotExist(err) {
		t.Errorf("game root still exists: %v", err)
	}
	if _, err := os.Stat(root.Base); err != nil {
		t.Errorf("base directory should survive: %v", err)
	}
	if err := lc.Uninstall(root); err != nil {
		t.Errorf("second Uninstall() error = %v", err)
	}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("read %s: %v", path, err)
		return
	}
	if string(data) != want {
		t.Errorf("%s = %q, want %q", path, data, want)
	}
}
