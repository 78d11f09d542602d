package series

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Order controls how discovered files are sorted.
type Order string

// Supported orders.
const (
	OrderName    Order = "name"
	OrderModTime Order = "mtime"
)

// DefaultSuffix is the extension of series tables.
const DefaultSuffix = ".csv"

// Discover lists the regular files in dir ending in suffix.
func Discover(dir, suffix string, order Order) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	type found struct {
		path    string
		modTime int64
	}
	var files []found
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, found{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}

	switch order {
	case OrderModTime:
		sort.SliceStable(files, func(i, j int) bool {
			if files[i].modTime != files[j].modTime {
				return files[i].modTime < files[j].modTime
			}
			return files[i].path < files[j].path
		})
	case OrderName, "":
		sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	default:
		return nil, fmt.Errorf("unknown file order %q", order)
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// Expand resolves command-line arguments into table paths. Directories
// expand to their tables in name order; files are kept as given.
func Expand(args []string, suffix string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := Discover(arg, suffix, OrderName)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}
