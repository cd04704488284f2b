// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema.
//
// A document is compiled, unified with a schema definition, validated and
// decoded into a map suitable for merging into Viper:
//
//	//go:embed config_schema.cue
//	var schema string
//
//	m, err := cueutil.DecodeMap(schema, data, "#Config", cueutil.WithFilename(path))
//
// Errors carry the JSON path of the offending field.
package cueutil
