// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/melonpatch/melonpatch/internal/testutil"
	"github.com/melonpatch/melonpatch/pkg/classify"
	"github.com/melonpatch/melonpatch/pkg/layout"
	"github.com/melonpatch/melonpatch/pkg/progress"
)

func newRoot(t *testing.T) layout.GameRoot {
	t.Helper()
	root, err := layout.NewGameRoot(filepath.Join(t.TempDir(), "Games"), layout.DefaultPackage)
	if err != nil {
		t.Fatalf("NewGameRoot() error = %v", err)
	}
	return root
}

func distribution(t *testing.T) string {
	t.Helper()
	return testutil.MustWriteZip(t, filepath.Join(t.TempDir(), "MelonLoader.zip"),
		testutil.ZipEntry{Name: "MelonLoader/"},
		testutil.ZipEntry{Name: "MelonLoader/net8/"},
		testutil.ZipEntry{Name: "MelonLoader/net8/MelonLoader.dll", Body: "MZcore"},
		testutil.ZipEntry{Name: "MelonLoader/net8/0Harmony.dll", Body: "MZharmony", Stored: true},
		testutil.ZipEntry{Name: "MelonLoader/net8/MelonLoader.deps.json", Body: "{}"},
		testutil.ZipEntry{Name: "MelonLoader/Dependencies/SupportModules/Il2Cpp.dll", Body: "MZil2cpp"},
		testutil.ZipEntry{Name: "UnityEngine.CoreModule.dll", Body: "MZunity"},
		testutil.ZipEntry{Name: "README.md", Body: "readme"},
	)
}

func TestExtractFile(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	rep, err := New().ExtractFile(context.Background(), distribution(t), root, layout.VariantModern)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if rep.Written != 5 || rep.Skipped != 3 || rep.Failed != 0 {
		t.Errorf("report = %+v, want 5 written, 3 skipped, 0 failed", rep)
	}
	if rep.ByRule[classify.RuleReroot] != 4 || rep.ByRule[classify.RuleUnity] != 1 {
		t.Errorf("ByRule = %v", rep.ByRule)
	}

	want := map[string]string{
		"Loaders/MelonLoader/net8/MelonLoader.dll":                   "MZcore",
		"Loaders/MelonLoader/net8/0Harmony.dll":                      "MZharmony",
		"Loaders/MelonLoader/Dependencies/SupportModules/Il2Cpp.dll": "MZil2cpp",
		layout.Resolve(layout.RoleUnityDependency, 0, "UnityEngine.CoreModule.dll"): "MZunity",
	}
	for rel, body := range want {
		data, err := os.ReadFile(root.Rel(rel))
		if err != nil {
			t.Errorf("missing %s: %v", rel, err)
			continue
		}
		if string(data) != body {
			t.Errorf("%s = %q, want %q", rel, data, body)
		}
	}
}

func TestExtractFile_Overwrites(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	dest := root.Rel("Loaders/MelonLoader/net8/MelonLoader.dll")
	testutil.MustMkdirAll(t, filepath.Dir(dest), 0o755)
	if err := os.WriteFile(dest, []byte("stale-and-longer-than-new"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New().ExtractFile(context.Background(), distribution(t), root, layout.VariantModern); err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if data, _ := os.ReadFile(dest); string(data) != "MZcore" {
		t.Errorf("existing file not overwritten: %q", data)
	}
}

func TestExtractFile_TraversalAborts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry string
	}{
		{"parent segments", "../../evil.dll"},
		{"nested parent segments", "MelonLoader/net8/../../../../evil.dll"},
		{"absolute", "/tmp/evil.dll"},
		{"backslash parent", `..\..\evil.dll`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base := t.TempDir()
			root, err := layout.NewGameRoot(filepath.Join(base, "Games"), layout.DefaultPackage)
			if err != nil {
				t.Fatal(err)
			}
			archive := testutil.MustWriteZip(t, filepath.Join(t.TempDir(), "bad.zip"),
				testutil.ZipEntry{Name: tt.entry, Body: "MZevil"},
				testutil.ZipEntry{Name: "MelonLoader/net8/MelonLoader.dll", Body: "MZcore"},
			)

			_, err = New().ExtractFile(context.Background(), archive, root, layout.VariantModern)
			if !errors.Is(err, ErrSecurityViolation) {
				t.Fatalf("ExtractFile() error = %v, want ErrSecurityViolation", err)
			}
			var secErr *SecurityError
			if !errors.As(err, &secErr) || secErr.Entry != tt.entry {
				t.Errorf("expected *SecurityError for %q, got %v", tt.entry, err)
			}
			if _, err := os.Stat(filepath.Join(base, "evil.dll")); !os.IsNotExist(err) {
				t.Error("evil.dll written outside the root")
			}
			if _, err := os.Stat(root.Rel("Loaders/MelonLoader/net8/MelonLoader.dll")); !os.IsNotExist(err) {
				t.Error("extraction continued after a security violation")
			}
		})
	}
}

func TestExtractFile_PartialFailure(t *testing.T) {
	t.Parallel()

	root := newRoot(t)
	// A directory where a file belongs makes that single entry fail.
	testutil.MustMkdirAll(t, root.Rel("Loaders/MelonLoader/net8/0Harmony.dll"), 0o755)

	rep, err := New().ExtractFile(context.Background(), distribution(t), root, layout.VariantModern)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if rep.Failed != 1 || rep.Written != 4 {
		t.Errorf("report = %+v, want 4 written and 1 failed", rep)
	}
}

func TestExtract_StreamCleansUpTemp(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile(distribution(t))
	if err != nil {
		t.Fatal(err)
	}
	tmpDir := t.TempDir()
	root := newRoot(t)

	var completed, failed int
	rep, err := New(
		WithTempDir(tmpDir),
		WithProgress(progress.Funcs{
			OnComplete: func(string) { completed++ },
			OnFail:     func(error) { failed++ },
		}),
	).Extract(context.Background(), bytes.NewReader(data), root, layout.VariantModern)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rep.Written != 5 {
		t.Errorf("Written = %d, want 5", rep.Written)
	}
	if completed != 1 || failed != 0 {
		t.Errorf("terminal callbacks: completed=%d failed=%d", completed, failed)
	}
	if entries, _ := os.ReadDir(tmpDir); len(entries) != 0 {
		t.Errorf("temporary archive not removed: %v", entries)
	}
}

func TestExtract_CorruptArchive(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	var failed int
	_, err := New(
		WithTempDir(tmpDir),
		WithProgress(progress.Funcs{OnFail: func(error) { failed++ }}),
	).Extract(context.Background(), bytes.NewReader([]byte("not a zip")), newRoot(t), layout.VariantModern)
	if err == nil {
		t.Fatal("Extract() expected error for corrupt archive")
	}
	if errors.Is(err, ErrSecurityViolation) {
		t.Error("corrupt archive reported as security violation")
	}
	if failed != 1 {
		t.Errorf("Fail called %d times, want 1", failed)
	}
	if entries, _ := os.ReadDir(tmpDir); len(entries) != 0 {
		t.Errorf("temporary archive not removed: %v", entries)
	}
}

func TestExtractFile_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().ExtractFile(ctx, distribution(t), newRoot(t), layout.VariantModern); !errors.Is(err, context.Canceled) {
		t.Errorf("ExtractFile() error = %v, want context.Canceled", err)
	}
}

func TestDetectVariant(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	modern := distribution(t)
	legacy := testutil.MustWriteZip(t, filepath.Join(dir, "legacy.zip"),
		testutil.ZipEntry{Name: "MelonLoader/net35/MelonLoader.dll", Body: "MZ"},
		testutil.ZipEntry{Name: "MelonLoader/net35/0Harmony.dll", Body: "MZ"},
	)
	other := testutil.MustWriteZip(t, filepath.Join(dir, "other.zip"),
		testutil.ZipEntry{Name: "MelonLoader.dll", Body: "MZ"},
		testutil.ZipEntry{Name: "notes.txt", Body: "x"},
	)

	if v, err := DetectVariant(modern); err != nil || v != layout.VariantModern {
		t.Errorf("DetectVariant(modern) = %v, %v", v, err)
	}
	if v, err := DetectVariant(legacy); err != nil || v != layout.VariantLegacy {
		t.Errorf("DetectVariant(legacy) = %v, %v", v, err)
	}
	if _, err := DetectVariant(other); !errors.Is(err, ErrNotLoaderArchive) {
		t.Errorf("DetectVariant(other) error = %v, want ErrNotLoaderArchive", err)
	}
}
