// Package workspace pairs headers with their source files and watches the
// workspace for changes that invalidate cached symbol trees.
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/lexcodex/cxxrefine/framework/config"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	prefix  string
	glob    glob.Glob
}

// Matcher finds the source file of a header and the header of a source file.
// Results are cached until Invalidate is called for either side.
type Matcher struct {
	root          string
	cfg           *config.Config
	headerFolders []compiledPattern
	sourceFolders []compiledPattern

	mu    sync.RWMutex
	pairs map[string]string
}

// NewMatcher compiles the folder patterns of cfg relative to root.
func NewMatcher(root string, cfg *config.Config) (*Matcher, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	m := &Matcher{root: abs, cfg: cfg, pairs: make(map[string]string)}
	if m.headerFolders, err = compilePatterns(cfg.Folders.Headers); err != nil {
		return nil, err
	}
	if m.sourceFolders, err = compilePatterns(cfg.Folders.Sources); err != nil {
		return nil, err
	}
	return m, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(strings.TrimPrefix(pattern, "./"))
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, prefix: literalPrefix(pattern), glob: g})
	}
	return compiled, nil
}

// literalPrefix is the directory part of pattern before its first wildcard:
// "include/**" -> "include/".
func literalPrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{")
	if idx < 0 {
		idx = len(pattern)
	}
	prefix := pattern[:idx]
	if slash := strings.LastIndex(prefix, "/"); slash >= 0 {
		return prefix[:slash+1]
	}
	return ""
}

func (m *Matcher) Root() string { return m.root }

// IsCxxFile reports whether path has a configured header or source extension.
func (m *Matcher) IsCxxFile(path string) bool {
	return m.cfg.IsHeader(path) || m.cfg.IsSource(path)
}

// Match returns the counterpart of path, or "" when there is none.
func (m *Matcher) Match(path string) (string, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	m.mu.RLock()
	partner, ok := m.pairs[path]
	m.mu.RUnlock()
	if ok {
		return partner, nil
	}

	var exts []string
	var from, to []compiledPattern
	switch {
	case m.cfg.IsHeader(path):
		exts, from, to = m.cfg.Extensions.Sources, m.headerFolders, m.sourceFolders
	case m.cfg.IsSource(path):
		exts, from, to = m.cfg.Extensions.Headers, m.sourceFolders, m.headerFolders
	default:
		return "", nil
	}

	partner = m.sameDirectory(path, exts)
	if partner == "" {
		partner = m.swappedFolder(path, exts, from, to)
	}
	if partner == "" {
		if partner, err = m.search(path, exts); err != nil {
			return "", err
		}
	}
	if partner != "" {
		m.mu.Lock()
		m.pairs[path] = partner
		m.pairs[partner] = path
		m.mu.Unlock()
	}
	return partner, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstExisting(dir, name string, exts []string) string {
	for _, ext := range exts {
		candidate := filepath.Join(dir, name+"."+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func (m *Matcher) sameDirectory(path string, exts []string) string {
	return firstExisting(filepath.Dir(path), stem(path), exts)
}

// swappedFolder maps include/a/b.h to src/a/b.cpp when path lies in a folder
// matched by one of from and to names the counterpart folder.
func (m *Matcher) swappedFolder(path string, exts []string, from, to []compiledPattern) string {
	rel, err := filepath.Rel(m.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	rel = filepath.ToSlash(rel)
	for _, src := range from {
		if !src.glob.Match(rel) || !strings.HasPrefix(rel, src.prefix) {
			continue
		}
		tail := strings.TrimPrefix(rel, src.prefix)
		for _, dst := range to {
			candidate := filepath.Join(m.root, filepath.FromSlash(dst.prefix+tail))
			if found := firstExisting(filepath.Dir(candidate), stem(candidate), exts); found != "" {
				return found
			}
		}
	}
	return ""
}

// search walks the workspace for a file with the same stem and a counterpart
// extension, preferring the one sharing the longest directory prefix.
func (m *Matcher) search(path string, exts []string) (string, error) {
	name := stem(path)
	want := make(map[string]bool, len(exts))
	for _, ext := range exts {
		want[strings.ToLower(ext)] = true
	}
	best, bestScore := "", -1
	err := filepath.WalkDir(m.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if p != m.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if stem(p) != name || !want[strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))] {
			return nil
		}
		if score := commonPrefix(filepath.Dir(p), filepath.Dir(path)); score > bestScore {
			best, bestScore = p, score
		}
		return nil
	})
	return best, err
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Files lists every header and source file under the workspace root,
// skipping hidden directories.
func (m *Matcher) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(m.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != m.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if m.IsCxxFile(p) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// Invalidate forgets the pairing of path in both directions.
func (m *Matcher) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if partner, ok := m.pairs[path]; ok {
		delete(m.pairs, partner)
	}
	delete(m.pairs, path)
}
