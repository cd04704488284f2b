// SPDX-License-Identifier: MPL-2.0

// Package validate inspects a game's canonical tree and decides whether a
// runtime is usably installed.
//
// Results are recomputed from disk on every call. Problems are returned as
// data: an ordered list of human-readable deficiencies that a caller can show
// directly or act on with Repair.
package validate
