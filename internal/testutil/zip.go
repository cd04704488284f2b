// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ZipEntry is one entry written by MustWriteZip. A name ending in "/" is
// written as a directory.
type ZipEntry struct {
	Name   string
	Body   string
	Stored bool
}

// MustWriteZip writes entries, in order, to a new zip archive at path.
// The test fails immediately if the archive cannot be written.
func MustWriteZip(t testing.TB, path string, entries ...ZipEntry) string {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path), 0o755)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		method := zip.Deflate
		if e.Stored {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: method})
		if err != nil {
			t.Fatalf("failed to add zip entry %s: %v", e.Name, err)
		}
		if e.Body != "" {
			if _, err := w.Write([]byte(e.Body)); err != nil {
				t.Fatalf("failed to write zip entry %s: %v", e.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finalize zip %s: %v", path, err)
	}
	MustClose(t, f)
	return path
}

// ReadZip returns the entry names and bodies of the archive at path, in
// archive order.
func ReadZip(t testing.TB, path string) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open zip %s: %v", path, err)
	}
	defer MustClose(t, zr)

	names := make([]string, 0, len(zr.File))
	bodies := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open zip entry %s: %v", f.Name, err)
		}
		data := make([]byte, f.UncompressedSize64)
		if _, err := io.ReadFull(rc, data); err != nil {
			t.Fatalf("failed to read zip entry %s: %v", f.Name, err)
		}
		MustClose(t, rc)
		bodies[f.Name] = string(data)
	}
	return names, bodies
}
