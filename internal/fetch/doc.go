// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads loader distribution archives.
//
// An archive is located either by a direct URL or by resolving a release of
// the loader's GitHub repository and picking an asset by name. Downloads are
// streamed to a temporary file and may be verified against a SHA256 hash
// before extraction.
package fetch
