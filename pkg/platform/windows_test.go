// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsWindowsReservedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"CON lowercase", "con", true},
		{"CON mixed case", "Con", true},
		{"NUL", "NUL", true},
		{"COM9", "com9", true},
		{"LPT1", "lpt1", true},
		{"with extension", "aux.dll", true},
		{"with double extension", "nul.dll.disabled", true},

		{"package id", "com.and.games505.TerrariaPaid", false},
		{"reserved prefix", "console.dll", false},
		{"COM10", "com10", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsWindowsReservedName(tt.input); got != tt.expected {
				t.Errorf("IsWindowsReservedName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestHasTrailingDotOrSpace(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]bool{
		"com.example.game":  false,
		"com.example.game.": true,
		"com.example.game ": true,
		"":                  false,
	} {
		if got := HasTrailingDotOrSpace(input); got != want {
			t.Errorf("HasTrailingDotOrSpace(%q) = %v, want %v", input, got, want)
		}
	}
}
