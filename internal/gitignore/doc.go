// Package gitignore matches paths against gitignore-style patterns.
//
// Supported syntax: wildcards (*, ?, [...]), "**" spanning directories,
// rooted patterns (/build), directory-only patterns (tmp/), negation
// (!keep.md) and escaped leading "#" or "!". Rules read from nested ignore
// files apply only below the directory that holds them.
//
//	m := gitignore.New()
//	m.Add("drafts/")
//	m.Add("*.bak")
//	m.Add("!drafts/published.md")
//	m.Match("drafts/wip.md", false) // true
package gitignore
