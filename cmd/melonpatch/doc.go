// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for melonpatch.
//
// Commands are built from an App composition root; every handler loads the
// configuration through the App's ConfigProvider, resolves the target game
// root from --root and --game, and delegates to the pkg/ building blocks.
package cmd
