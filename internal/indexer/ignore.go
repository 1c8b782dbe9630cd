package indexer

import (
	"strings"

	"github.com/gobwas/glob"
)

// ignoreRule is one compiled gitignore-style pattern.
type ignoreRule struct {
	g        glob.Glob
	negate   bool
	dirOnly  bool
	anchored bool
}

// IgnoreMatcher evaluates gitignore-style patterns. Supported syntax: glob
// wildcards, leading "!" for negation, trailing "/" for directory-only
// patterns, and a leading or interior "/" to anchor the pattern at the
// project root. Unanchored patterns match any path segment. When several
// patterns match a path, the last one wins.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher compiles patterns into a matcher. Blank lines, comments,
// and patterns that fail to compile are skipped.
func NewIgnoreMatcher(patterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range patterns {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rule ignoreRule
		if strings.HasPrefix(line, "!") {
			rule.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			rule.anchored = true
			line = line[1:]
		}
		if strings.Contains(line, "/") {
			rule.anchored = true
		}
		if line == "" {
			continue
		}

		var err error
		if rule.anchored {
			rule.g, err = glob.Compile(line, '/')
		} else {
			rule.g, err = glob.Compile(line)
		}
		if err != nil {
			continue
		}
		m.rules = append(m.rules, rule)
	}
	return m
}

// Match reports whether relPath is ignored. relPath must be forward-slash
// separated and relative to the project root.
func (m *IgnoreMatcher) Match(relPath string, isDir bool) bool {
	if len(m.rules) == 0 {
		return false
	}
	segments := strings.Split(relPath, "/")
	ignored := false
	for _, rule := range m.rules {
		if rule.matches(relPath, segments, isDir) {
			ignored = !rule.negate
		}
	}
	return ignored
}

// matches checks the rule against the path and each of its ancestor
// directories, since ignoring a directory ignores everything inside it.
func (r ignoreRule) matches(relPath string, segments []string, isDir bool) bool {
	if r.anchored {
		for i := 1; i <= len(segments); i++ {
			prefix := strings.Join(segments[:i], "/")
			if !r.g.Match(prefix) {
				continue
			}
			// A proper prefix of the path is necessarily a directory.
			if i < len(segments) || isDir || !r.dirOnly {
				return true
			}
		}
		return false
	}
	for i, segment := range segments {
		if !r.g.Match(segment) {
			continue
		}
		if i < len(segments)-1 || isDir || !r.dirOnly {
			return true
		}
	}
	return false
}
