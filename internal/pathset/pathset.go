// Package pathset resolves include paths, such as the inputs of an archive or a key checksum,
// to the existing files and directories they name.
package pathset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bmatcuk/doublestar/v4"
)

// Match is the outcome of resolving a single include path.
type Match struct {
	// Pattern is the include path as given.
	Pattern string
	// Paths are the existing absolute paths the pattern resolved to, in lexical order for globs.
	Paths []string
	// Err is set for patterns that could not be resolved at all, for example a malformed glob.
	Err error
}

// Empty reports whether the pattern resolved cleanly to nothing.
func (m Match) Empty() bool {
	return m.Err == nil && len(m.Paths) == 0
}

// Resolver expands ~, environment variables and doublestar globs (such as `**/*.lock`).
// Symlinks are not followed while matching globs.
type Resolver struct {
	pathModifier pathutil.PathModifier
	pathChecker  pathutil.PathChecker
}

// NewResolver ...
func NewResolver(pathModifier pathutil.PathModifier, pathChecker pathutil.PathChecker) Resolver {
	return Resolver{
		pathModifier: pathModifier,
		pathChecker:  pathChecker,
	}
}

// Resolve resolves every pattern. Relative patterns are taken relative to baseDir,
// or to the working directory when baseDir is empty.
func (r Resolver) Resolve(baseDir string, patterns []string) []Match {
	matches := make([]Match, 0, len(patterns))
	for _, pattern := range patterns {
		paths, err := r.resolve(baseDir, pattern)
		matches = append(matches, Match{Pattern: pattern, Paths: paths, Err: err})
	}
	return matches
}

func (r Resolver) resolve(baseDir, pattern string) ([]string, error) {
	path := pattern
	if baseDir != "" && !filepath.IsAbs(path) && !strings.HasPrefix(path, "~") && !strings.HasPrefix(path, "$") {
		path = filepath.Join(baseDir, path)
	}

	absPath, err := r.pathModifier.AbsPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", pattern, err)
	}

	if !strings.Contains(absPath, "*") {
		exists, err := r.pathChecker.IsPathExists(absPath)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", absPath, err)
		}
		if !exists {
			return nil, nil
		}
		return []string{absPath}, nil
	}

	base, glob := doublestar.SplitPattern(absPath)
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid pattern: %s", pattern)
	}
	if _, err := os.Stat(base); err != nil {
		// nothing can match below a missing base directory
		return nil, nil
	}

	found, err := doublestar.Glob(os.DirFS(base), glob, doublestar.WithNoFollow())
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", pattern, err)
	}

	var paths []string
	for _, match := range found {
		paths = append(paths, filepath.Join(base, filepath.FromSlash(match)))
	}
	return paths, nil
}

// Paths flattens the resolved paths of every match, dropping duplicates.
func Paths(matches []Match) []string {
	seen := map[string]bool{}
	var paths []string
	for _, m := range matches {
		for _, p := range m.Paths {
			if seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

// Files keeps the regular files among paths.
func Files(paths []string) []string {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	return files
}
