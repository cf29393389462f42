package utils

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultDeniedDirs are directory names never walked into: version control
// metadata, dependency trees and build output.
var DefaultDeniedDirs = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"venv",
	".venv",
	"__pycache__",
	"dist",
	"build",
	"vendor",
	"target",
	".idea",
	".vscode",
	".cache",
	"bin",
	"obj",
	"out",
	"coverage",
}

// DefaultAllowedExtensions are the source extensions read by default.
var DefaultAllowedExtensions = []string{
	".py", ".js", ".jsx", ".ts", ".tsx", ".html", ".css", ".java", ".cpp",
	".go", ".rb", ".rs", ".c", ".h", ".hpp", ".cs", ".php", ".kt", ".swift",
	".scala", ".sh", ".sql", ".vue", ".svelte",
}

// NormalizeExtensions lowercases extensions and adds the leading dot.
func NormalizeExtensions(exts []string) map[string]struct{} {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return allowed
}

// NormalizeDirNames builds a set of directory names, compared case-insensitively.
func NormalizeDirNames(names []string) map[string]struct{} {
	denied := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.Trim(strings.ToLower(strings.TrimSpace(name)), "/")
		if name != "" {
			denied[name] = struct{}{}
		}
	}
	return denied
}

// IsDeniedDir reports whether a directory name is on the denylist.
func IsDeniedDir(name string, denied map[string]struct{}) bool {
	_, ok := denied[strings.ToLower(name)]
	return ok
}

// HasAllowedExtension reports whether the file's extension is in the set.
func HasAllowedExtension(relativePath string, allowed map[string]struct{}) bool {
	ext := strings.ToLower(filepath.Ext(relativePath))
	if ext == "" {
		return false
	}
	_, ok := allowed[ext]
	return ok
}

// GetGitignorePatterns reads the patterns of the .gitignore at root.
// A missing file yields no patterns.
func GetGitignorePatterns(root string) ([]string, error) {
	gitignorePath := filepath.Join(root, ".gitignore")

	file, err := os.Open(gitignorePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error opening .gitignore: %w", err)
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Negations are not supported; skipping them only makes the selector
		// read more files.
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, strings.TrimPrefix(line, "/"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read .gitignore: %w", err)
	}
	return patterns, nil
}

// IsGitIgnored checks a slash separated relative path against gitignore
// patterns. Directory paths must carry a trailing slash.
func IsGitIgnored(relativePath string, patterns []string) bool {
	isDir := strings.HasSuffix(relativePath, "/")
	trimmed := strings.TrimSuffix(relativePath, "/")
	base := path.Base(trimmed)

	for _, pattern := range patterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		pattern = strings.TrimSuffix(pattern, "/")
		if pattern == "" {
			continue
		}
		if dirOnly {
			if isDir && matches(pattern, trimmed, base) {
				return true
			}
			// Files below an ignored directory.
			if strings.HasPrefix(trimmed, pattern+"/") {
				return true
			}
			continue
		}
		if matches(pattern, trimmed, base) {
			return true
		}
	}
	return false
}

func matches(pattern, fullPath, base string) bool {
	if strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, fullPath)
		return ok
	}
	ok, _ := path.Match(pattern, base)
	return ok
}
