// SPDX-License-Identifier: MPL-2.0

package inject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Entry names of the generated manifest files.
const (
	BootstrapEntry = "assets/melonloader_bootstrap.sh"
	ConfigEntry    = "assets/melonloader_config.json"
)

// Manifest describes the injected runtime. It is written verbatim as the JSON
// config entry.
type Manifest struct {
	LoaderType string `json:"loader_type"`
	Version    string `json:"version"`
	Game       string `json:"game"`
	InjectedBy string `json:"injected_by"`
}

// DefaultManifest returns the manifest used when none is configured.
func DefaultManifest() Manifest {
	return Manifest{
		LoaderType: "MelonLoader",
		Version:    "0.6.5",
		Game:       "Terraria",
		InjectedBy: "TerrariaLoader",
	}
}

// JSON returns the indented JSON config entry.
func (m Manifest) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Bootstrap returns the bootstrap marker script. The script is parsed and
// printed back in canonical form, so the result is always valid POSIX shell.
func (m Manifest) Bootstrap() ([]byte, error) {
	msg, err := syntax.Quote(m.LoaderType+" initialized", syntax.LangPOSIX)
	if err != nil {
		return nil, fmt.Errorf("failed to quote bootstrap message: %w", err)
	}

	var src strings.Builder
	src.WriteString("#!/system/bin/sh\n")
	fmt.Fprintf(&src, "# %s bootstrap\n", commentSafe(m.LoaderType))
	fmt.Fprintf(&src, "# version: %s\n", commentSafe(m.Version))
	fmt.Fprintf(&src, "# game: %s\n", commentSafe(m.Game))
	fmt.Fprintf(&src, "# injected by: %s\n", commentSafe(m.InjectedBy))
	fmt.Fprintf(&src, "echo %s\n", msg)

	file, err := syntax.NewParser(syntax.KeepComments(true), syntax.Variant(syntax.LangPOSIX)).
		Parse(strings.NewReader(src.String()), BootstrapEntry)
	if err != nil {
		return nil, fmt.Errorf("invalid bootstrap script: %w", err)
	}
	var out bytes.Buffer
	if err := syntax.NewPrinter().Print(&out, file); err != nil {
		return nil, fmt.Errorf("failed to print bootstrap script: %w", err)
	}
	return out.Bytes(), nil
}

func commentSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
