package fileutil

import (
	"os"
	"path/filepath"
)

// ResolveRepoPath returns the absolute path to use as the repository working
// directory. An empty path resolves to the process's current directory.
func ResolveRepoPath(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}
	return filepath.Abs(path)
}
