// SPDX-License-Identifier: MPL-2.0

// Package config handles melonpatch configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/melonpatch/config.cue (or the XDG equivalent on Linux,
// ~/Library/Application Support/melonpatch/config.cue on macOS, %APPDATA%\melonpatch\config.cue
// on Windows). Values from a .env file next to the config file and MELONPATCH_* environment
// variables override the file. The package provides typed access to the game root location,
// the injection manifest, validation thresholds, download source and backup retention.
//
// Configuration files are validated against an embedded CUE schema (config_schema.cue).
package config
