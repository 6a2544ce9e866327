// Package filter implements ordered include/exclude rules evaluated against
// slash-separated paths relative to a source root.
//
// A rule is written "+ PATTERN" (include) or "- PATTERN" (exclude). The first
// rule whose pattern matches decides; a path matched by no rule is excluded.
// A pattern containing a slash other than a trailing one is matched against
// the whole relative path, otherwise against the last path element. A
// trailing slash restricts the rule to directories. Patterns use doublestar
// syntax, so "**" spans directory levels.
package filter

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type Action int

const (
	Exclude Action = iota
	Include
)

func (a Action) String() string {
	if a == Include {
		return "+"
	}
	return "-"
}

// Rule is a single include or exclude pattern.
type Rule struct {
	Action  Action
	Pattern string
	// DirOnly restricts the rule to directories.
	DirOnly bool
	// Anchored rules match the full relative path instead of the base name.
	Anchored bool
}

// Parse parses "+ PATTERN" or "- PATTERN".
func Parse(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || s[1] != ' ' {
		return Rule{}, fmt.Errorf("invalid rule %q; expected '+ PATTERN' or '- PATTERN'", s)
	}
	var r Rule
	switch s[0] {
	case '+':
		r.Action = Include
	case '-':
		r.Action = Exclude
	default:
		return Rule{}, fmt.Errorf("invalid rule %q; must start with '+' or '-'", s)
	}
	pat := strings.TrimSpace(s[2:])
	if strings.HasSuffix(pat, "/") {
		r.DirOnly = true
		pat = strings.TrimRight(pat, "/")
	}
	pat = strings.TrimPrefix(pat, "/")
	if pat == "" {
		return Rule{}, fmt.Errorf("invalid rule %q; empty pattern", s)
	}
	if !doublestar.ValidatePattern(pat) {
		return Rule{}, fmt.Errorf("invalid rule %q; bad glob pattern", s)
	}
	r.Pattern = pat
	r.Anchored = strings.Contains(pat, "/")
	return r, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Rule {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rule) String() string {
	p := r.Pattern
	if r.DirOnly {
		p += "/"
	}
	return r.Action.String() + " " + p
}

// Matches reports whether the rule's pattern applies to rel.
func (r Rule) Matches(rel string, isDir bool) bool {
	if r.DirOnly && !isDir {
		return false
	}
	name := rel
	if !r.Anchored {
		name = path.Base(rel)
	}
	ok, err := doublestar.Match(r.Pattern, name)
	return err == nil && ok
}

// Rules is an ordered rule list.
type Rules []Rule

// ParseAll parses each line into a rule, preserving order.
func ParseAll(lines []string) (Rules, error) {
	rules := make(Rules, 0, len(lines))
	for _, l := range lines {
		r, err := Parse(l)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Included evaluates the rules in order; the first match wins and
// unmatched paths are excluded.
func (rs Rules) Included(rel string, isDir bool) bool {
	for _, r := range rs {
		if r.Matches(rel, isDir) {
			return r.Action == Include
		}
	}
	return false
}

// Strings returns the textual form of each rule.
func (rs Rules) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}

// DefaultLines keeps every file at least one level below logs/, lets every
// directory be traversed, and drops the rest.
var DefaultLines = []string{
	"+ logs/**/*",
	"+ */",
	"- *",
}

// Default returns the rules for DefaultLines.
func Default() Rules {
	rules := make(Rules, len(DefaultLines))
	for i, l := range DefaultLines {
		rules[i] = MustParse(l)
	}
	return rules
}
