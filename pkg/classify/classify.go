// SPDX-License-Identifier: MPL-2.0

// Package classify maps entry names from a loader distribution archive onto
// the canonical tree.
//
// Rules are tried in a fixed order and the first match wins:
//
//  1. wrapper and packaging prefixes are stripped;
//  2. entries under a known bucket directory (net8, net35, Dependencies) are
//     re-rooted at that bucket, wherever the bucket appears in the path;
//  3. remaining entries are placed by file name;
//  4. everything else is skipped.
//
// Classification is a pure function of the entry name and the target variant.
package classify

import (
	"path"
	"slices"
	"strings"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

// Rule names which classification step accepted an entry.
type Rule string

const (
	RuleNone      Rule = ""
	RuleReroot    Rule = "reroot"
	RuleCore      Rule = "core"
	RuleSupport   Rule = "support"
	RuleGenerator Rule = "generator"
	RuleUnity     Rule = "unity"
	RuleCompat    Rule = "compat"
	RuleCatchAll  Rule = "catch-all"
	RuleConfig    Rule = "config"
	RuleNative    Rule = "native"
)

type (
	// Decision is the outcome of classifying one entry. When Skip is false,
	// Path is the slash-separated destination relative to the GameRoot.
	Decision struct {
		Skip bool
		Path string
		Rule Rule
	}

	// Classifier applies a rule set. It holds no mutable state.
	Classifier struct {
		rules Rules
	}
)

func skip() Decision { return Decision{Skip: true} }

func writeTo(rule Rule, p string) Decision { return Decision{Path: p, Rule: rule} }

// New returns a Classifier using rules.
func New(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a Classifier using DefaultRules.
func Default() *Classifier {
	return New(DefaultRules())
}

// Classify decides whether entryName is kept and where it goes.
func (c *Classifier) Classify(entryName string, variant layout.Variant) Decision {
	name := strings.ReplaceAll(entryName, `\`, "/")
	name = strings.TrimLeft(name, "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return skip()
	}
	name = c.stripPrefixes(name)
	if name == "" {
		return skip()
	}

	if d, ok := c.reroot(name); ok {
		return d
	}
	return c.byName(name, variant)
}

func (c *Classifier) stripPrefixes(name string) string {
	for _, p := range c.rules.WrapperPrefixes {
		if strings.HasPrefix(name, p) {
			name = strings.TrimPrefix(name, p)
			break
		}
	}
	for stripped := true; stripped; {
		stripped = false
		for _, p := range c.rules.StripPrefixes {
			if strings.HasPrefix(name, p) {
				name = strings.TrimPrefix(name, p)
				stripped = true
			}
		}
	}
	return name
}

// reroot places the entry under the loader subdirectory of its bucket.
// Leading bucket prefixes win over nested segments; within each pass the
// bucket order of the rules decides.
func (c *Classifier) reroot(name string) (Decision, bool) {
	at, bucket := c.findBucket(name)
	if at < 0 {
		return Decision{}, false
	}

	rel := name[at:]
	if strings.TrimPrefix(rel, bucket+"/") == "" {
		return skip(), true
	}
	for _, a := range c.rules.BucketAliases {
		if strings.HasPrefix(rel, a.From) {
			rel = a.To + strings.TrimPrefix(rel, a.From)
			break
		}
	}
	return writeTo(RuleReroot, path.Join(layout.Resolve(layout.RoleLoader, 0, ""), rel)), true
}

func (c *Classifier) findBucket(name string) (int, string) {
	for _, b := range c.rules.Buckets {
		if strings.HasPrefix(name, b+"/") {
			return 0, b
		}
	}
	for _, b := range c.rules.Buckets {
		if i := strings.Index(name, "/"+b+"/"); i >= 0 {
			return i + 1, b
		}
	}
	return -1, ""
}

func (c *Classifier) byName(name string, variant layout.Variant) Decision {
	base := path.Base(name)
	ext := strings.ToLower(path.Ext(base))
	r := c.rules

	switch {
	case slices.Contains(r.CoreNames, base) || hasAnyPrefix(base, r.CorePrefixes):
		return writeTo(RuleCore, layout.Resolve(layout.RoleRuntimeCore, variant, base))
	case slices.Contains(r.SupportNames, base) || hasAnyPrefix(base, r.SupportPrefixes):
		return writeTo(RuleSupport, layout.Resolve(layout.RoleSupportModule, 0, base))
	case slices.Contains(r.GeneratorNames, base) || containsAny(base, r.GeneratorMarkers):
		return writeTo(RuleGenerator, layout.Resolve(layout.RoleAssemblyGenerator, 0, base))
	case hasAnyPrefix(base, r.UnityPrefixes):
		return writeTo(RuleUnity, layout.Resolve(layout.RoleUnityDependency, 0, base))
	case slices.Contains(r.CompatNames, base):
		return writeTo(RuleCompat, layout.Resolve(layout.RoleCompatibilityLayer, 0, base))
	case r.CatchAllExtension != "" && ext == r.CatchAllExtension:
		return writeTo(RuleCatchAll, layout.Resolve(layout.RoleSupportModule, 0, base))
	case slices.Contains(r.ConfigExtensions, ext):
		return writeTo(RuleConfig, layout.Resolve(layout.RoleRuntimeCore, variant, base))
	case slices.Contains(r.NativeExtensions, ext):
		if rid := c.nativeRID(name); rid != "" {
			return writeTo(RuleNative, layout.NativePath(rid, base))
		}
	}
	return skip()
}

func (c *Classifier) nativeRID(name string) string {
	segments := strings.Split(path.Dir(name), "/")
	for _, arch := range c.rules.Architectures {
		if slices.Contains(segments, arch.Segment) {
			return arch.RID
		}
	}
	return ""
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
