package cli

import (
	"fmt"
	"os"

	"github.com/gitops-tools/reconcile-pr-action/internal/config"
	"github.com/gitops-tools/reconcile-pr-action/internal/fileutil"
)

// loadConfig loads configuration from the environment (and overridePath, if
// set), printing any error to stderr before returning it.
func loadConfig(overridePath string) (config.Config, error) {
	cfg, err := config.Load(overridePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return config.Config{}, err
	}
	return cfg, nil
}

// repoDir resolves the working directory the engine should operate in: the
// configured path if set, otherwise the process's current directory.
func repoDir(cfg config.Config) (string, error) {
	dir, err := fileutil.ResolveRepoPath(cfg.Path)
	if err != nil {
		return "", fmt.Errorf("resolving repository path %q: %w", cfg.Path, err)
	}
	return dir, nil
}
