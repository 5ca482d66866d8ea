package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DiscoverRepos finds git repositories under base, descending at most
// maxDepth directory levels. Dot directories are skipped and discovery
// never descends into a repository. Unreadable directories are ignored.
func DiscoverRepos(base string, maxDepth int) ([]string, error) {
	base = filepath.Clean(base)
	if _, err := os.Stat(base); err != nil {
		return nil, err
	}

	var repos []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == base {
				return err
			}
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != base && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if depthOf(base, path) > maxDepth {
			return filepath.SkipDir
		}
		if IsGitRepo(path) {
			repos = append(repos, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(repos)
	return repos, nil
}

// IsGitRepo reports whether dir is a working tree or a bare repository.
func IsGitRepo(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	return isBareRepo(dir)
}

func isBareRepo(dir string) bool {
	return isFile(filepath.Join(dir, "HEAD")) &&
		isDir(filepath.Join(dir, "objects")) &&
		(isDir(filepath.Join(dir, "refs")) || isFile(filepath.Join(dir, "packed-refs"))) &&
		isFile(filepath.Join(dir, "config"))
}

func depthOf(base, path string) int {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
