// SPDX-License-Identifier: MPL-2.0

// Package layout defines the canonical directory tree for a game.
//
// Every path the installer reads or writes is derived here. The functions in
// this package are pure: they perform no I/O and always return the same path
// for the same inputs. Changing the layout requires a migration step in the
// lifecycle package.
//
// Layout, relative to a GameRoot:
//
//	Mods/DLL/*
//	Mods/DEX/*
//	Loaders/MelonLoader/net8/*
//	Loaders/MelonLoader/net35/*
//	Loaders/MelonLoader/Dependencies/SupportModules/*
//	Loaders/MelonLoader/Dependencies/CompatibilityLayers/*
//	Loaders/MelonLoader/Dependencies/AssemblyGenerator/**
//	Loaders/MelonLoader/Plugins/*
//	Loaders/MelonLoader/UserLibs/*
//	Logs/*
//	AppLogs/*
//	Backups/*
//	Config/*
package layout
