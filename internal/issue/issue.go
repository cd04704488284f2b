// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

type Id int

const (
	ArchiveNotFoundId Id = iota + 1
	SecurityViolationId
	RuntimeNotInstalledId
	NothingToInjectId
	ConfigLoadFailedId
	MigrationIncompleteId
	PackageNotFoundId
	InvalidModBinaryId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	archiveNotFoundIssue = &Issue{
		id: ArchiveNotFoundId,
		mdMsg: `
# Loader archive not found!

The MelonLoader distribution archive could not be opened.

## Things you can try:
- Check the path you passed to install:
~~~
$ melonpatch install ./MelonLoader.zip
~~~
- Download the archive directly:
~~~
$ melonpatch install --url https://github.com/LavaGang/MelonLoader/releases/download/v0.6.5/MelonLoader.x64.zip
~~~
- Make sure the file is a zip archive and not a partial download`,
		extLinks: []HttpLink{"https://github.com/LavaGang/MelonLoader/releases"},
	}

	securityViolationIssue = &Issue{
		id: SecurityViolationId,
		mdMsg: `
# Unsafe archive rejected!

An entry in the archive tried to write outside the game directory
(an absolute path or a "../" segment). Nothing after that entry was extracted.

## Things you can try:
- Download the loader again from its official release page
- Do not install archives from untrusted sources
- Run validation to see what was written before the abort:
~~~
$ melonpatch validate --report
~~~`,
		extLinks: []HttpLink{"https://github.com/LavaGang/MelonLoader/releases"},
	}

	runtimeNotInstalledIssue = &Issue{
		id: RuntimeNotInstalledId,
		mdMsg: `
# Loader runtime not installed!

Neither the modern (net8) nor the legacy (net35) runtime has enough files
in the game directory.

## Things you can try:
- Install the loader first:
~~~
$ melonpatch install ./MelonLoader.zip
~~~
- Inspect what is missing:
~~~
$ melonpatch validate --report
~~~
- Recreate missing directories:
~~~
$ melonpatch repair
~~~`,
	}

	nothingToInjectIssue = &Issue{
		id: NothingToInjectId,
		mdMsg: `
# Nothing to inject!

No runtime files could be found or read for the selected variant, so the
package was left untouched.

## Things you can try:
- Preview what would be injected:
~~~
$ melonpatch preview
~~~
- Pick the variant you installed:
~~~
$ melonpatch patch game.apk game-patched.apk --variant legacy
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your configuration file could not be read or does not match the schema.

## Things you can try:
- Show where the configuration is read from:
~~~
$ melonpatch config path
~~~
- Write a fresh default configuration:
~~~
$ melonpatch config init
~~~
- Check the CUE syntax and the reported field path`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	migrationIncompleteIssue = &Issue{
		id: MigrationIncompleteId,
		mdMsg: `
# Migration incomplete!

Some files from the old flat layout could not be moved. They were left in place
and nothing was overwritten.

## Things you can try:
- Check file permissions in the old "mods" and "logs" directories
- Move the remaining files by hand into Mods/DLL, Mods/DEX or AppLogs
- Run the migration again:
~~~
$ melonpatch migrate
~~~`,
	}

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Application package not found!

The package to patch could not be opened as a zip archive.

## Things you can try:
- Check the source path
- Make sure the source and destination are different files
- Check whether the package is already patched:
~~~
$ melonpatch is-patched game.apk
~~~`,
	}

	invalidModBinaryIssue = &Issue{
		id: InvalidModBinaryId,
		mdMsg: `
# Not a valid mod assembly!

DLL mods must be Windows PE images starting with the "MZ" header. The file is
empty, truncated or not an assembly at all.

## Things you can try:
- Download the mod again
- Make sure you picked the .dll and not a readme or archive`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A directory or file under the game root could not be written.

## Things you can try:
- Check ownership of the game root:
~~~
$ melonpatch config show
~~~
- Point the root somewhere writable:
~~~
$ melonpatch --root ~/melonpatch init
~~~`,
	}

	issues = map[Id]*Issue{
		archiveNotFoundIssue.Id():     archiveNotFoundIssue,
		securityViolationIssue.Id():   securityViolationIssue,
		runtimeNotInstalledIssue.Id(): runtimeNotInstalledIssue,
		nothingToInjectIssue.Id():     nothingToInjectIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		migrationIncompleteIssue.Id(): migrationIncompleteIssue,
		packageNotFoundIssue.Id():     packageNotFoundIssue,
		invalidModBinaryIssue.Id():    invalidModBinaryIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	vals := slices.Collect(maps.Values(issues))
	slices.SortFunc(vals, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return vals
}

func Get(id Id) *Issue {
	return issues[id]
}
