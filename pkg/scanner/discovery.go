package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gnana997/propgen/pkg/parser"
)

// ValidatePatterns rejects malformed include or exclude globs.
func ValidatePatterns(cfg Config) error {
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range cfg.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}
	return nil
}

// DiscoverFiles walks rootDir applying include/exclude globs from cfg.
// Returns a sorted slice of absolute file paths for deterministic output.
func DiscoverFiles(rootDir string, cfg Config) ([]string, error) {
	if err := ValidatePatterns(cfg); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue walking on errors.
		}
		if path == absRoot {
			return nil
		}

		relPath := relSlash(absRoot, path)
		if excluded(cfg, relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if included(cfg, relPath) && parser.IsSourceFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether path, a file under rootDir, would be discovered.
// Directory exclusions are checked against every parent directory.
func Matches(rootDir, path string, cfg Config) bool {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	relPath := relSlash(absRoot, absPath)
	if relPath == "." || relPath == ".." || len(relPath) > 2 && relPath[:3] == "../" {
		return false
	}

	for dir := filepath.ToSlash(filepath.Dir(relPath)); dir != "." && dir != "/"; dir = filepath.ToSlash(filepath.Dir(dir)) {
		if excluded(cfg, dir) {
			return false
		}
	}
	return !excluded(cfg, relPath) && included(cfg, relPath) && parser.IsSourceFile(absPath)
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func excluded(cfg Config, relPath string) bool {
	for _, pattern := range cfg.Exclude {
		if m, _ := doublestar.Match(pattern, relPath); m {
			return true
		}
	}
	return false
}

func included(cfg Config, relPath string) bool {
	if len(cfg.Include) == 0 {
		return true
	}
	for _, pattern := range cfg.Include {
		if m, _ := doublestar.Match(pattern, relPath); m {
			return true
		}
	}
	return false
}

// ExcludesDir reports whether dir, a directory under rootDir, is pruned by
// the exclude globs.
func ExcludesDir(rootDir, dir string, cfg Config) bool {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil || absDir == absRoot {
		return false
	}
	return excluded(cfg, relSlash(absRoot, absDir))
}
