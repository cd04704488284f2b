// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format values.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

type (
	// Format is an export encoding.
	Format string

	record struct {
		Name     string    `json:"name" yaml:"name" toml:"name"`
		File     string    `json:"file" yaml:"file" toml:"file"`
		Kind     string    `json:"kind" yaml:"kind" toml:"kind"`
		State    string    `json:"state" yaml:"state" toml:"state"`
		Size     int64     `json:"size" yaml:"size" toml:"size"`
		Modified time.Time `json:"modified" yaml:"modified" toml:"modified"`
	}

	document struct {
		Game string   `json:"game" yaml:"game" toml:"game"`
		Mods []record `json:"mods" yaml:"mods" toml:"mods"`
	}
)

// Formats lists the supported export formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatTOML}
}

// ParseFormat parses an export format name. An empty name means text.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want text, json, yaml or toml)", s)
	}
}

// Export writes every installed mod to w in format.
func (m *Manager) Export(w io.Writer, format Format) error {
	mods, err := m.List(KindAny)
	if err != nil {
		return err
	}
	return Encode(w, string(m.root.Package), mods, format)
}

// Encode writes mods to w in format.
func Encode(w io.Writer, game string, mods []Mod, format Format) error {
	doc := document{Game: game, Mods: make([]record, 0, len(mods))}
	for _, mod := range mods {
		doc.Mods = append(doc.Mods, record{
			Name:     mod.Name,
			File:     mod.FileName(),
			Kind:     mod.Kind.String(),
			State:    mod.State.String(),
			Size:     mod.Size,
			Modified: mod.ModTime.UTC().Truncate(time.Second),
		})
	}

	switch format {
	case FormatText, "":
		return encodeText(w, doc)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func encodeText(w io.Writer, doc document) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mods for %s: %d\n", doc.Game, len(doc.Mods))
	for _, r := range doc.Mods {
		fmt.Fprintf(&sb, "  %-40s %-4s %-8s %d\n", r.Name, r.Kind, r.State, r.Size)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
