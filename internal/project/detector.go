package project

import (
	"os"
	"path/filepath"
)

// rootMarkers identify a project root, in priority order at each level.
var rootMarkers = []string{".clinscalerc.json", ".clinscalerc.yaml", ".clinscalerc.yml", ".git"}

// Info describes a detected project root.
// Named 'Info' instead of 'ProjectInfo' to avoid stuttering (project.Info vs project.ProjectInfo).
type Info struct {
	Root      string
	Marker    string // the marker that identified Root, empty when none was found
	HasConfig bool
	HasGit    bool
}

// FindProjectRoot searches for a project root starting from the given path
// and climbing up the directory tree. Without a marker anywhere above, the
// start directory is the root.
func FindProjectRoot(startPath string) (string, error) {
	info, err := Detect(startPath)
	if err != nil {
		return "", err
	}
	return info.Root, nil
}

// Detect finds the project root above startPath and reports what it holds.
// Named 'Detect' instead of 'DetectProjectInfo' to avoid stuttering.
func Detect(startPath string) (*Info, error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return nil, err
	}

	currentDir := absPath
	for {
		if marker := findMarker(currentDir); marker != "" {
			return describe(currentDir, marker), nil
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			// Reached filesystem root
			break
		}
		currentDir = parent
	}

	return describe(absPath, ""), nil
}

func findMarker(dir string) string {
	for _, m := range rootMarkers {
		if exists(filepath.Join(dir, m)) {
			return m
		}
	}
	return ""
}

func describe(root, marker string) *Info {
	info := &Info{Root: root, Marker: marker, HasGit: exists(filepath.Join(root, ".git"))}
	for _, m := range rootMarkers[:3] {
		if exists(filepath.Join(root, m)) {
			info.HasConfig = true
			break
		}
	}
	return info
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
