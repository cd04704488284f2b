// SPDX-License-Identifier: MPL-2.0

// Package extract installs a loader distribution archive into the canonical
// tree of a game.
//
// Entries are streamed one at a time through a classify.Classifier and copied
// with a fixed-size buffer. An entry whose name or destination would escape
// the game root aborts the whole extraction with ErrSecurityViolation; any
// other per-entry failure is logged and skipped.
package extract
