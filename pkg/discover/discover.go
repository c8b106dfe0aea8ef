// Package discover finds performance logs below a directory by glob list.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultGlob matches every .log file at any depth
const DefaultGlob = "**/*.log"

// SplitList splits a glob list on ';', ':' or ','
func SplitList(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ';' || r == ':' || r == ','
	})

	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Matcher matches slash-separated relative paths against a set of globs
type Matcher struct {
	globs []glob.Glob
}

// Compile builds a matcher. A pattern starting with "**/" also matches at
// the top level, so "**/*.log" matches "a.log" as well as "x/y/a.log".
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile glob %q: %w", p, err)
		}
		m.globs = append(m.globs, g)

		if rest := strings.TrimPrefix(p, "**/"); rest != p && rest != "" {
			g, err := glob.Compile(rest, '/')
			if err != nil {
				return nil, fmt.Errorf("failed to compile glob %q: %w", rest, err)
			}
			m.globs = append(m.globs, g)
		}
	}
	return m, nil
}

// Match reports whether rel matches any glob
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Find walks root and returns the files matching the glob list, sorted.
// An empty list uses DefaultGlob. .git directories are skipped.
func Find(root, globList string) ([]string, error) {
	patterns := SplitList(globList)
	if len(patterns) == 0 {
		patterns = []string{DefaultGlob}
	}

	m, err := Compile(patterns)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if m.Match(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
