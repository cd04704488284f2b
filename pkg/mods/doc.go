// SPDX-License-Identifier: MPL-2.0

// Package mods manages user mods in the canonical tree.
//
// Binary (.dll) mods live in Mods/DLL; managed (.dex, .jar) mods live in
// Mods/DEX. A mod is disabled by appending ".disabled" to its file name, and
// exactly one of the two name forms exists on disk at any time.
package mods
