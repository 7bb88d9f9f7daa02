package discovery

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dotcommander/clinscale/internal/scale"
)

// TypePattern maps a glob pattern to a FileType for type detection.
// Patterns are matched in order; first match wins.
type TypePattern struct {
	Pattern  string
	FileType FileType
}

// typePatterns defines the canonical patterns for detecting document kinds.
// Response sets are recognised by suffix or directory before the catch-all
// template pattern.
var typePatterns = []TypePattern{
	{"**/*.responses.{json,yaml,yml}", FileTypeResponses},
	{"**/responses/**/*.{json,yaml,yml}", FileTypeResponses},
	{"**/*.{json,yaml,yml}", FileTypeTemplate},
}

// ignoredNames are tool files that share the template extensions.
var ignoredNames = map[string]bool{
	".clinscalerc.json":        true,
	".clinscalerc.yaml":        true,
	".clinscalerc.yml":         true,
	".clinscale-baseline.json": true,
	"package.json":             true,
	"package-lock.json":        true,
	"tsconfig.json":            true,
}

// FileTypeEntry defines the discovery configuration for a file type.
type FileTypeEntry struct {
	Type     FileType
	Patterns []string
}

// DefaultFileTypes is the registry of document kinds and their discovery
// patterns.
var DefaultFileTypes = []FileTypeEntry{
	{Type: FileTypeTemplate, Patterns: []string{"**/*.{json,yaml,yml}"}},
	{Type: FileTypeResponses, Patterns: []string{"**/*.responses.{json,yaml,yml}", "**/responses/**/*.{json,yaml,yml}"}},
}

// DetectFileType determines the document kind from a file path using glob
// pattern matching against its path relative to rootPath.
//
// Example:
//
//	fileType, err := DetectFileType("/scales/phq9.responses.json", "/scales")
//	// fileType == FileTypeResponses
func DetectFileType(absPath, rootPath string) (FileType, error) {
	relPath, err := filepath.Rel(rootPath, absPath)
	if err != nil {
		return FileTypeUnknown, fmt.Errorf("cannot compute relative path from %s to %s: %w", rootPath, absPath, err)
	}

	// Normalize to forward slashes for cross-platform pattern matching
	relPath = filepath.ToSlash(relPath)

	if strings.HasPrefix(relPath, "..") {
		return FileTypeUnknown, fmt.Errorf("file is outside project root: %s", absPath)
	}

	if ignoredNames[filepath.Base(relPath)] {
		return FileTypeUnknown, fmt.Errorf("%s is a tool file, not a scale document", relPath)
	}

	for _, tp := range typePatterns {
		matched, err := doublestar.Match(tp.Pattern, relPath)
		if err != nil {
			continue
		}
		if matched {
			return tp.FileType, nil
		}
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if ext == "" {
		return FileTypeUnknown, fmt.Errorf(
			"unsupported file: %s has no extension. clinscale reads .json, .yaml and .yml files only", filepath.Base(absPath))
	}
	return FileTypeUnknown, fmt.Errorf(
		"unsupported file type: %s. clinscale reads .json, .yaml and .yml files only", ext)
}

// ValidateFilePath performs comprehensive validation of a file path before
// it is read as a template or response set.
//
// This function checks all preconditions:
//   - File exists
//   - Path is a file (not directory)
//   - File is not empty
//   - File is not binary
func ValidateFilePath(path string) (absPath string, err error) {
	absPath, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}

	info, err := os.Lstat(absPath) // Lstat to detect symlinks
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", absPath)
		}
		if os.IsPermission(err) {
			return "", fmt.Errorf("permission denied: %s", absPath)
		}
		return "", fmt.Errorf("cannot access file: %s: %w", absPath, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		realPath, evalErr := filepath.EvalSymlinks(absPath)
		if evalErr != nil {
			return "", fmt.Errorf("cannot resolve symlink %s: %w", absPath, evalErr)
		}
		absPath = realPath
		info, err = os.Stat(absPath)
		if err != nil {
			return "", fmt.Errorf("symlink target inaccessible: %s: %w", absPath, err)
		}
	}

	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", absPath)
	}

	if info.Size() == 0 {
		return "", fmt.Errorf("file is empty: %s", absPath)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return "", fmt.Errorf("cannot read file: %s: %w", absPath, err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return "", fmt.Errorf("cannot read file: %s: %w", absPath, err)
	}

	if bytes.Contains(buf[:n], []byte{0}) {
		return "", fmt.Errorf("file appears to be binary, not text: %s", absPath)
	}

	return absPath, nil
}

// File represents a discovered file with its metadata
type File struct {
	Path     string
	RelPath  string
	Size     int64
	Type     FileType
	Contents []byte
}

// Format is the document format implied by the file extension.
func (f File) Format() scale.Format {
	return scale.FormatFromPath(f.Path)
}

// FileType categorizes discovered files
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeTemplate
	FileTypeResponses
)

// String returns the human-readable name of the file type.
func (ft FileType) String() string {
	switch ft {
	case FileTypeTemplate:
		return "template"
	case FileTypeResponses:
		return "responses"
	default:
		return "unknown"
	}
}

// FileDiscovery manages file discovery operations
type FileDiscovery struct {
	rootPath       string
	followSymlinks bool
	exclude        []string
}

// NewFileDiscovery creates a new FileDiscovery instance. exclude holds
// doublestar patterns matched against paths relative to rootPath.
func NewFileDiscovery(rootPath string, followSymlinks bool, exclude ...string) *FileDiscovery {
	return &FileDiscovery{
		rootPath:       rootPath,
		followSymlinks: followSymlinks,
		exclude:        exclude,
	}
}

// DiscoverFiles finds all scale documents under the root.
func (fd *FileDiscovery) DiscoverFiles() ([]File, error) {
	return fd.DiscoverFilesWithRegistry(DefaultFileTypes)
}

// DiscoverTemplates finds template documents only.
func (fd *FileDiscovery) DiscoverTemplates() ([]File, error) {
	files, err := fd.DiscoverFiles()
	if err != nil {
		return nil, err
	}
	var out []File
	for _, f := range files {
		if f.Type == FileTypeTemplate {
			out = append(out, f)
		}
	}
	return out, nil
}

// DiscoverFilesWithRegistry finds files using a custom registry. A file
// matched by several entries is reported once, under the type DetectFileType
// assigns it.
func (fd *FileDiscovery) DiscoverFilesWithRegistry(registry []FileTypeEntry) ([]File, error) {
	var files []File
	seen := make(map[string]bool)

	for _, ftc := range registry {
		discovered, err := fd.findFilesByPattern(ftc.Patterns)
		if err != nil {
			return nil, fmt.Errorf("error discovering %s files: %w", ftc.Type.String(), err)
		}
		for _, f := range discovered {
			if f.Type != ftc.Type || seen[f.RelPath] {
				continue
			}
			seen[f.RelPath] = true
			files = append(files, f)
		}
	}

	return files, nil
}

// findFilesByPattern finds files matching the given glob patterns
func (fd *FileDiscovery) findFilesByPattern(patterns []string) ([]File, error) {
	var files []File

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(os.DirFS(fd.rootPath), pattern)
		if err != nil {
			return nil, fmt.Errorf("error evaluating pattern %s: %w", pattern, err)
		}

		for _, match := range matches {
			if fd.excluded(match) {
				continue
			}
			f, ok := fd.processMatch(match)
			if ok {
				files = append(files, f)
			}
		}
	}

	return files, nil
}

func (fd *FileDiscovery) excluded(relPath string) bool {
	for _, pattern := range fd.exclude {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// processMatch converts a glob match into a File, returning false if the match should be skipped.
func (fd *FileDiscovery) processMatch(match string) (File, bool) {
	fullPath := filepath.Join(fd.rootPath, match)

	linfo, err := os.Lstat(fullPath)
	if err != nil || linfo.IsDir() {
		return File{}, false
	}

	readPath := fullPath
	size := linfo.Size()
	if linfo.Mode()&os.ModeSymlink != 0 {
		resolved, resolvedInfo, ok := fd.resolveSymlink(fullPath)
		if !ok || resolvedInfo.IsDir() {
			return File{}, false
		}
		readPath = resolved
		size = resolvedInfo.Size()
	}

	fileType, err := DetectFileType(fullPath, fd.rootPath)
	if err != nil {
		return File{}, false
	}

	contents, err := os.ReadFile(readPath)
	if err != nil {
		return File{}, false
	}

	return File{
		Path:     fullPath,
		RelPath:  filepath.ToSlash(match),
		Size:     size,
		Type:     fileType,
		Contents: contents,
	}, true
}

// resolveSymlink follows a symlink if configured, returning the resolved path and info.
// Returns false if the symlink should be skipped.
func (fd *FileDiscovery) resolveSymlink(fullPath string) (string, os.FileInfo, bool) {
	if !fd.followSymlinks {
		return "", nil, false
	}

	realPath, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		return "", nil, false
	}

	root, err := filepath.EvalSymlinks(fd.rootPath)
	if err != nil {
		root = fd.rootPath
	}
	if !strings.HasPrefix(realPath, root) {
		return "", nil, false
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return "", nil, false
	}

	return realPath, info, true
}
