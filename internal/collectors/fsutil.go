// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

// Package collectors implements the Signal Collectors of the bloat auditor:
// Heuristic, GitHistory, Similarity, and Dependency. Each Collector walks
// the Artifact stream independently and emits Evidence; a missing or
// failing collector never invalidates another's output (enforced one layer
// up, in internal/pipeline).
package collectors

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/athola/auditor/internal/testable"
)

// FS is the file system implementation used by this package. Override in
// tests with a testable.MockFileSystem.
var FS testable.FileSystem = testable.DefaultFS

// defaultExcludePatterns are directory/file globs skipped unless overridden.
var defaultExcludePatterns = []string{
	"vendor/**",
	"node_modules/**",
	".git/**",
	"testdata/**",
	"CHANGELOG*",
	"CHANGES*",
	"HISTORY*",
	"NEWS*",
	"third_party/**",
	"3rdparty/**",
	"extern/**",
	"external/**",
	"bower_components/**",
	"wwwroot/lib/**",
}

// defaultDemoPatterns are directory globs for demo/example/tutorial paths.
// Production-path-only signals (TODO triage, god-structure) are suppressed
// here by default.
var defaultDemoPatterns = []string{
	"examples/**",
	"example/**",
	"tutorials/**",
	"tutorial/**",
	"demos/**",
	"demo/**",
	"samples/**",
	"sample/**",
	"_examples/**",
	"fixtures/**",
	"fixture/**",
	"docs/patterns/**",
}

// isDemoPath returns true if relPath falls under a demo/example/tutorial/
// fixture directory — i.e. not a production path per the TODO-triage and
// god-structure contracts.
func isDemoPath(relPath string) bool {
	return shouldExclude(relPath, defaultDemoPatterns)
}

// sourceExtensions defines the file extensions considered "source code" for
// size/shape and god-structure heuristics.
var sourceExtensions = map[string]bool{
	".go":    true,
	".js":    true,
	".ts":    true,
	".jsx":   true,
	".tsx":   true,
	".py":    true,
	".rb":    true,
	".java":  true,
	".cs":    true,
	".rs":    true,
	".cpp":   true,
	".c":     true,
	".h":     true,
	".hpp":   true,
	".swift": true,
	".kt":    true,
	".scala": true,
	".php":   true,
	".ex":    true,
	".exs":   true,
}

// docExtensions defines the file extensions considered documentation for
// the size/shape soft caps and the "complete guide" anti-pattern.
var docExtensions = map[string]bool{
	".md":       true,
	".mdx":      true,
	".rst":      true,
	".adoc":     true,
	".txt":      true,
}

// shouldExclude returns true if relPath matches any of the exclude patterns.
func shouldExclude(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, relPath)
		if err == nil && matched {
			return true
		}
		if !strings.Contains(pattern, "/") && !strings.Contains(pattern, "**") {
			matched, err = filepath.Match(pattern, filepath.Base(relPath))
			if err == nil && matched {
				return true
			}
		}
		if strings.HasSuffix(pattern, "/**") {
			dir := strings.TrimSuffix(pattern, "/**")
			sep := string(filepath.Separator)
			if relPath == dir || strings.HasPrefix(relPath, dir+sep) {
				return true
			}
			if strings.Contains(relPath, sep+dir+sep) || strings.HasSuffix(relPath, sep+dir) {
				return true
			}
		}
	}
	return false
}

// matchesAny returns true if relPath matches any of the given glob patterns.
func matchesAny(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, relPath)
		if err == nil && matched {
			return true
		}
		if !strings.Contains(pattern, "/") && !strings.Contains(pattern, "**") {
			matched, err = filepath.Match(pattern, filepath.Base(relPath))
			if err == nil && matched {
				return true
			}
		}
		if strings.Contains(pattern, "**") {
			parts := strings.SplitN(pattern, "**", 2)
			prefix, suffix := parts[0], strings.TrimPrefix(parts[1], "/")
			if strings.HasPrefix(relPath, prefix) {
				if suffix == "" {
					return true
				}
				rest := strings.TrimPrefix(relPath, prefix)
				matched, err = filepath.Match(suffix, filepath.Base(rest))
				if err == nil && matched {
					return true
				}
			}
		}
	}
	return false
}

// mergeExcludes returns the union of default and user-provided exclude patterns.
func mergeExcludes(userPatterns []string) []string {
	merged := make([]string, len(defaultExcludePatterns))
	copy(merged, defaultExcludePatterns)
	merged = append(merged, userPatterns...)
	return merged
}

// isBinaryFile returns true if the file appears to contain binary content.
// It reads the first 512 bytes and checks for null bytes.
func isBinaryFile(path string) bool {
	f, err := FS.Open(path)
	if err != nil {
		return true
	}
	defer f.Close() //nolint:errcheck // read-only file, close error is inconsequential

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return true
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// isGitRepo returns true if dir contains a .git directory or file.
func isGitRepo(dir string) bool {
	_, err := FS.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// isInsideStringLiteral walks line up to matchStart, tracking whether we
// are inside a single-quoted, double-quoted, or backtick string literal
// (respecting backslash escapes). Used to keep magic-literal and TODO
// detection from firing on matches embedded in string contents.
func isInsideStringLiteral(line string, matchStart int) bool {
	inSingle, inDouble, inBacktick := false, false, false
	for i := 0; i < matchStart && i < len(line); i++ {
		if line[i] == '\\' && i+1 < matchStart {
			i++
			continue
		}
		switch line[i] {
		case '\'':
			if !inDouble && !inBacktick {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle && !inBacktick {
				inDouble = !inDouble
			}
		case '`':
			if !inSingle && !inDouble {
				inBacktick = !inBacktick
			}
		}
	}
	return inSingle || inDouble || inBacktick
}

// countLines returns the number of lines in the file at path: every
// newline-terminated line, plus a final unterminated line if there is one.
func countLines(path string) (int, error) {
	f, err := FS.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck // read-only file, close error is inconsequential

	buf := make([]byte, 64*1024)
	count := 0
	lastByte := byte('\n')
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				if b == '\n' {
					count++
				}
			}
			lastByte = buf[n-1]
		}
		if readErr != nil {
			break
		}
	}
	if lastByte != '\n' {
		count++ // count a final unterminated line
	}
	return count, nil
}

// walkSourceFiles walks repoPath, applying the standard exclude/include/
// symlink/binary filters shared by every file-based collector, and calls fn
// for each surviving regular file. fn receives the absolute path and the
// repo-relative, slash-free-OS path.
func walkSourceFiles(repoPath string, excludes, includes []string, fn func(absPath, relPath string, info os.DirEntry) error) error {
	return FS.WalkDir(repoPath, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}

		relPath, relErr := filepath.Rel(repoPath, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if shouldExclude(relPath, excludes) {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldExclude(relPath, excludes) {
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			resolved, resolveErr := FS.EvalSymlinks(path)
			if resolveErr != nil {
				return nil
			}
			if !strings.HasPrefix(resolved, repoPath+string(filepath.Separator)) && resolved != repoPath {
				return nil
			}
		}

		if len(includes) > 0 && !matchesAny(relPath, includes) {
			return nil
		}

		if isBinaryFile(path) {
			return nil
		}

		return fn(path, relPath, d)
	})
}
