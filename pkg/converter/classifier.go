package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter/imageio"
	"github.com/spf13/afero"
)

// SourceItem is a classified entry of the input directory.
type SourceItem struct {
	Kind SourceKind `json:"kind" yaml:"kind" toml:"kind"`
	Name string     `json:"name" yaml:"name" toml:"name"`
	Path string     `json:"path" yaml:"path" toml:"path"`
}

// Classification partitions a directory listing. Both slices are sorted by name.
type Classification struct {
	Files   []SourceItem
	Folders []SourceItem
}

// Total is the number of units a non-merged folder run will produce.
func (c Classification) Total() int { return len(c.Files) + len(c.Folders) }

// Classify lists root once and keeps supported image files and
// subdirectories. Hidden entries and other files are dropped silently.
// A listing failure is fatal and wraps ErrFatalRun and ErrListFailed.
func Classify(fsys afero.Fs, root string) (Classification, error) {
	var c Classification
	entries, err := readDir(fsys, root)
	if err != nil {
		return c, fmt.Errorf("%w: %w: %s: %w", ErrFatalRun, ErrListFailed, root, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if isHidden(name) {
			continue
		}
		path := filepath.Join(root, name)
		info, err := followLink(fsys, path, entry)
		if err != nil {
			continue
		}
		switch {
		case info.IsDir():
			c.Folders = append(c.Folders, SourceItem{Kind: SourceFolder, Name: name, Path: path})
		case info.Mode().IsRegular() && imageio.IsSupported(name):
			c.Files = append(c.Files, SourceItem{Kind: SourceFile, Name: name, Path: path})
		}
	}
	return c, nil
}

// ListImages returns the supported, non-hidden image files directly inside
// dir, sorted by name. Nested directories are ignored.
func ListImages(fsys afero.Fs, dir string) ([]string, error) {
	entries, err := readDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var images []string
	for _, entry := range entries {
		name := entry.Name()
		if isHidden(name) || !imageio.IsSupported(name) {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := followLink(fsys, path, entry)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		images = append(images, path)
	}
	return images, nil
}

func readDir(fsys afero.Fs, dir string) ([]os.FileInfo, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// followLink resolves symbolic links so linked images and folders count like
// regular ones. Broken links are reported as errors and skipped by callers.
func followLink(fsys afero.Fs, path string, info os.FileInfo) (os.FileInfo, error) {
	if info.Mode()&os.ModeSymlink == 0 {
		return info, nil
	}
	return fsys.Stat(path)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
