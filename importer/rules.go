// Rename and inclusion rules for tags, branches and files.

package main

import (
	"regexp"
)

// A renameRule rewrites a matching name; first match wins.
type renameRule struct {
	match   *regexp.Regexp
	replace string
}

// Renamer is an ordered list of rename rules.  Unmatched names pass
// through untouched.
type Renamer struct {
	rules []renameRule
}

func (r *Renamer) AddRule(pattern, replacement string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, renameRule{match: re, replace: replacement})
	return nil
}

func (r *Renamer) Apply(name string) string {
	for _, rule := range r.rules {
		if rule.match.MatchString(name) {
			return rule.match.ReplaceAllString(name, rule.replace)
		}
	}
	return name
}

// Matches reports whether any rule touches the name at all.
func (r *Renamer) Matches(name string) bool {
	for _, rule := range r.rules {
		if rule.match.MatchString(name) {
			return true
		}
	}
	return false
}

type inclusionRule struct {
	match   *regexp.Regexp
	include bool
}

// InclusionMatcher decides whether an item is wanted.  Rules are
// applied in order and each matching rule overrides the running value,
// so the last matching rule decides; items matching no rule keep the
// default.
type InclusionMatcher struct {
	rules      []inclusionRule
	Default    bool
}

func NewInclusionMatcher(def bool) *InclusionMatcher {
	return &InclusionMatcher{Default: def}
}

func (m *InclusionMatcher) AddRule(pattern string, include bool) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	m.rules = append(m.rules, inclusionRule{match: re, include: include})
	return nil
}

func (m *InclusionMatcher) Match(name string) bool {
	v := m.Default
	for _, rule := range m.rules {
		if rule.match.MatchString(name) {
			v = rule.include
		}
	}
	return v
}
