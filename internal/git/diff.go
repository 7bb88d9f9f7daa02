// Package git narrows validation to templates with uncommitted changes.
package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dotcommander/clinscale/internal/discovery"
)

// StagedTemplates returns absolute paths of staged template files under
// rootPath. Returns an empty slice if rootPath is not in a git repository.
func StagedTemplates(rootPath string) ([]string, error) {
	if !IsGitRepo(rootPath) {
		return []string{}, nil
	}

	// --relative limits output to rootPath and reports paths relative to it
	output, err := run(rootPath, "diff", "--name-only", "--relative", "--staged")
	if err != nil {
		return nil, err
	}
	return filterTemplates(output, rootPath), nil
}

// ChangedTemplates returns absolute paths of template files with uncommitted
// changes, staged or not, under rootPath. In a repository without commits
// every tracked template is returned.
func ChangedTemplates(rootPath string) ([]string, error) {
	if !IsGitRepo(rootPath) {
		return []string{}, nil
	}

	if _, err := run(rootPath, "rev-parse", "HEAD"); err != nil {
		// No commits yet
		output, err := run(rootPath, "ls-files")
		if err != nil {
			return nil, err
		}
		return filterTemplates(output, rootPath), nil
	}

	output, err := run(rootPath, "diff", "--name-only", "--relative", "HEAD")
	if err != nil {
		return nil, err
	}
	return filterTemplates(output, rootPath), nil
}

// IsGitRepo checks if the given directory is within a git repository.
func IsGitRepo(rootPath string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = rootPath
	return cmd.Run() == nil
}

func run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, output)
	}
	return string(output), nil
}

// filterTemplates keeps the paths in git output that still exist and that
// discovery classifies as templates. Returns absolute paths.
func filterTemplates(gitOutput, rootPath string) []string {
	files := []string{}
	for _, line := range strings.Split(strings.TrimSpace(gitOutput), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		absPath := filepath.Join(rootPath, line)

		// git reports deletions too
		if _, err := os.Stat(absPath); err != nil {
			continue
		}

		if ft, err := discovery.DetectFileType(absPath, rootPath); err != nil || ft != discovery.FileTypeTemplate {
			continue
		}

		files = append(files, absPath)
	}
	return files
}
