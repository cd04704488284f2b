// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

var allIds = []Id{
	ArchiveNotFoundId,
	SecurityViolationId,
	RuntimeNotInstalledId,
	NothingToInjectId,
	ConfigLoadFailedId,
	MigrationIncompleteId,
	PackageNotFoundId,
	InvalidModBinaryId,
	PermissionDeniedId,
}

func TestId_Constants(t *testing.T) {
	seen := make(map[Id]bool)
	for _, id := range allIds {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}
	if ArchiveNotFoundId != 1 {
		t.Errorf("ArchiveNotFoundId = %d, want 1", ArchiveNotFoundId)
	}
}

func TestIssuesMapCompleteness(t *testing.T) {
	for _, id := range allIds {
		iss := Get(id)
		if iss == nil {
			t.Errorf("Get(%d) returned nil", id)
			continue
		}
		if iss.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, iss.Id())
		}
		if strings.TrimSpace(string(iss.MarkdownMsg())) == "" {
			t.Errorf("issue %d has empty message", id)
		}
	}
	if Get(Id(999)) != nil {
		t.Error("Get(unknown) should return nil")
	}
}

func TestValues(t *testing.T) {
	vals := Values()
	if len(vals) != len(allIds) {
		t.Fatalf("Values() returned %d issues, want %d", len(vals), len(allIds))
	}
	for i := 1; i < len(vals); i++ {
		if vals[i-1].Id() >= vals[i].Id() {
			t.Errorf("Values() not ordered at %d", i)
		}
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	iss := Get(ArchiveNotFoundId)
	links := iss.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	links[0] = "mutated"
	if iss.ExtLinks()[0] == "mutated" {
		t.Error("ExtLinks() should return a copy")
	}
	if len(iss.DocLinks()) != 0 {
		t.Errorf("DocLinks() = %v, want none", iss.DocLinks())
	}
}

func TestIssue_Render(t *testing.T) {
	orig := render
	t.Cleanup(func() { render = orig })

	var got string
	render = func(in, style string) (string, error) {
		got = in
		return in, nil
	}

	if _, err := Get(SecurityViolationId).Render("dark"); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(got, "Unsafe archive rejected") {
		t.Errorf("rendered markdown missing title:\n%s", got)
	}
	if !strings.Contains(got, "## See also") || !strings.Contains(got, "LavaGang/MelonLoader") {
		t.Errorf("rendered markdown missing links:\n%s", got)
	}

	if _, err := Get(NothingToInjectId).Render("dark"); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(got, "See also") {
		t.Error("issue without links should not render a See also section")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	for _, iss := range Values() {
		out, err := iss.Render("notty")
		if err != nil {
			t.Errorf("issue %d: Render() error = %v", iss.Id(), err)
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("issue %d rendered empty", iss.Id())
		}
	}
}
