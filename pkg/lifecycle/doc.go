// SPDX-License-Identifier: MPL-2.0

// Package lifecycle creates, migrates and removes the canonical directory tree
// of a game.
//
// Operations never panic and report failures as data: Initialize returns the
// directories it could not create, Migrate returns how many files it moved.
package lifecycle
