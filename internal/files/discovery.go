package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"retailpulse/internal/dataprocessing"
)

// ErrOutsideRoot rejects paths that escape a Discovery root
var ErrOutsideRoot = errors.New("path outside root directory")

// FileInfo represents information about a discovered file
type FileInfo struct {
	// Name is the slash separated path relative to the root
	Name    string    `json:"name"`
	Path    string    `json:"-"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
	Format  string    `json:"format,omitempty"`
}

// Discovery finds and resolves files below one root directory
type Discovery struct {
	root   string
	logger *slog.Logger
}

// NewDiscovery creates a new file discovery instance rooted at root
func NewDiscovery(root string, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		root:   root,
		logger: logger.With(slog.String("component", "file_discovery")),
	}
}

// Root returns the absolute root directory
func (d *Discovery) Root() (string, error) {
	root, err := filepath.Abs(d.root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", d.root, err)
	}
	return root, nil
}

// Resolve maps path onto the root. Relative paths are joined to it and may
// not escape it; absolute paths must lie inside it too.
func (d *Discovery) Resolve(path string) (string, error) {
	root, err := d.Root()
	if err != nil {
		return "", err
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, filepath.FromSlash(full))
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return full, nil
}

// Stat resolves name and describes the regular file there
func (d *Discovery) Stat(name string) (FileInfo, error) {
	full, err := d.Resolve(name)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return FileInfo{}, err
	}
	if !info.Mode().IsRegular() {
		return FileInfo{}, fmt.Errorf("%s is not a regular file: %w", name, fs.ErrNotExist)
	}
	root, _ := d.Root()
	return d.fileInfo(root, full, info), nil
}

// FindDataFiles lists every file the dataset loader can read, newest first
func (d *Discovery) FindDataFiles(ctx context.Context) ([]FileInfo, error) {
	return d.FindFiles(ctx, func(name string) bool {
		_, err := dataprocessing.DetectFormat(name)
		return err == nil
	})
}

// FindFiles walks the root and lists the regular files whose name satisfies
// match, newest first. Hidden entries are skipped and a missing root yields
// an empty list.
func (d *Discovery) FindFiles(ctx context.Context, match func(name string) bool) ([]FileInfo, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || (match != nil && !match(entry.Name())) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			// Removed while walking
			return nil
		}
		files = append(files, d.fileInfo(root, path, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})

	d.logger.DebugContext(ctx, "files discovered",
		slog.String("root", root),
		slog.Int("count", len(files)))
	return files, nil
}

func (d *Discovery) fileInfo(root, path string, info fs.FileInfo) FileInfo {
	name, err := filepath.Rel(root, path)
	if err != nil {
		name = filepath.Base(path)
	}
	fi := FileInfo{
		Name:    filepath.ToSlash(name),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if format, err := dataprocessing.DetectFormat(path); err == nil {
		fi.Format = string(format)
	}
	return fi
}
