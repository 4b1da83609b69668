package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"dirsize/internal/tree"
)

type ScanResult struct {
	Tree   *tree.Tree
	Root   tree.NodeID
	Files  int
	Errors []error
}

// Scan builds a tree from the directory at rootPath. Entries matching an
// exclusion are left out; unreadable entries are recorded and skipped.
func Scan(rootPath string, exclusions []string) (*ScanResult, error) {
	var entries []tree.Entry
	result := &ScanResult{Errors: make([]error, 0)}

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// If error is on the root path, return it (don't continue walking)
			if path == rootPath {
				return err
			}
			result.Errors = append(result.Errors, err)
			return nil
		}

		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			return nil
		}
		if relPath == "." {
			return nil
		}

		if shouldExclude(relPath, d, exclusions) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are not followed and not recorded
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if d.IsDir() {
			entries = append(entries, tree.Entry{Path: filepath.ToSlash(relPath), Dir: true})
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, err)
			return nil
		}
		entries = append(entries, tree.Entry{Path: filepath.ToSlash(relPath), Size: info.Size()})
		result.Files++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	t, root, err := tree.Build(filepath.Base(filepath.Clean(rootPath)), entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}
	result.Tree, result.Root = t, root
	return result, nil
}

func shouldExclude(relPath string, d fs.DirEntry, exclusions []string) bool {
	for _, pattern := range exclusions {
		// Handle directory exclusions (patterns ending with /)
		if strings.HasSuffix(pattern, "/") {
			if !d.IsDir() {
				continue
			}
			dirPattern := strings.TrimSuffix(pattern, "/")
			if matched, _ := filepath.Match(dirPattern, d.Name()); matched || d.Name() == dirPattern {
				return true
			}
			continue
		}

		matched, err := filepath.Match(pattern, filepath.Base(relPath))
		if err == nil && matched {
			return true
		}
		// Also try matching against the full relative path for patterns with /
		if strings.Contains(pattern, "/") {
			matched, err := filepath.Match(pattern, filepath.ToSlash(relPath))
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}
