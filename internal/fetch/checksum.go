// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrChecksumMismatch indicates a download does not match its expected hash.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ChecksumError describes a failed verification.
type ChecksumError struct {
	Path     string
	Expected string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Path, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// VerifyFile checks that the SHA256 of the file at path equals expected,
// compared case-insensitively.
func VerifyFile(path, expected string) error {
	expected = strings.ToLower(strings.TrimSpace(expected))
	if !isValidHexHash(expected) {
		return fmt.Errorf("invalid SHA256 hash %q", expected)
	}
	got, err := ComputeFileHash(path)
	if err != nil {
		return err
	}
	if got != expected {
		return &ChecksumError{Path: path, Expected: expected, Got: got}
	}
	return nil
}

// ComputeFileHash returns the hex-encoded SHA256 of the file at path.
func ComputeFileHash(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isValidHexHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
