package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
)

// Matcher holds ignore rules in the order they were added. The last
// matching rule wins, so later negations re-include paths.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	segments []string // pattern split on "/"; "**" spans any depth
	negate   bool
	dirOnly  bool
	// anchored rules match from base; others match at any depth.
	anchored bool
	base     string
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Add adds one pattern relative to the matcher root.
func (m *Matcher) Add(pattern string) {
	m.AddWithBase(pattern, "")
}

// AddWithBase adds a pattern that applies only below base, a
// slash-separated directory relative to the matcher root.
func (m *Matcher) AddWithBase(pattern, base string) {
	r, ok := parseRule(pattern)
	if !ok {
		return
	}
	r.base = strings.Trim(base, "/")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromFile reads patterns from an ignore file located in base.
func (m *Matcher) AddFromFile(file, base string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddWithBase(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read ignore file %s: %w", file, err)
	}
	return nil
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Match reports whether the slash-separated path rel is ignored.
func (m *Matcher) Match(rel string, isDir bool) bool {
	rel = strings.Trim(rel, "/")
	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.match(rel, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

func parseRule(line string) (rule, bool) {
	var r rule
	escapedSpace := strings.HasSuffix(line, `\ `)
	p := strings.TrimSpace(line)
	if escapedSpace {
		p = strings.TrimSuffix(p, `\`) + " "
	}
	if p == "" || strings.HasPrefix(p, "#") {
		return r, false
	}

	switch {
	case strings.HasPrefix(p, `\#`), strings.HasPrefix(p, `\!`):
		p = p[1:]
	case strings.HasPrefix(p, "!"):
		r.negate = true
		p = p[1:]
	}
	if strings.HasSuffix(p, "/") {
		r.dirOnly = true
		p = strings.TrimRight(p, "/")
	}
	if strings.HasPrefix(p, "/") {
		r.anchored = true
		p = strings.TrimLeft(p, "/")
	}
	if strings.Contains(p, "/") {
		r.anchored = true
	}
	if p == "" {
		return r, false
	}
	r.segments = strings.Split(p, "/")
	return r, true
}

func (r rule) match(rel string, isDir bool) bool {
	if r.base != "" {
		if !strings.HasPrefix(rel, r.base+"/") {
			return false
		}
		rel = strings.TrimPrefix(rel, r.base+"/")
	}
	parts := strings.Split(rel, "/")

	// A rule naming a directory also ignores everything beneath it, so
	// test every ancestor prefix as a directory.
	for n := 1; n <= len(parts); n++ {
		prefixIsDir := n < len(parts) || isDir
		if r.dirOnly && !prefixIsDir {
			continue
		}
		if r.matchParts(parts[:n]) {
			return true
		}
	}
	return false
}

// matchParts matches a whole path prefix against the rule.
func (r rule) matchParts(parts []string) bool {
	if r.anchored {
		return matchSegments(r.segments, parts)
	}
	// Unanchored single-segment rules match the last component at any depth.
	return matchSegments(r.segments, parts[len(parts)-1:])
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pattern[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}
