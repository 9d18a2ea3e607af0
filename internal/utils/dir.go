package utils

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/gruppe-adler/lidar2raster/internal/pointcloud"
)

// IsFile tests whether given path exists and is a file
func IsFile(filePath string) bool {
	file, err := os.Stat(filePath)
	if err != nil {
		return false
	}

	return !file.IsDir()
}

// IsDirectory tests whether given path exists and is a directory
func IsDirectory(dirPath string) bool {
	dir, err := os.Stat(dirPath)
	if err != nil {
		return false
	}

	return dir.IsDir()
}

// ListPointClouds returns the paths of all readable point cloud files
// directly inside dir, sorted by name.
func ListPointClouds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !pointcloud.Supported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	return paths, nil
}

// EnsureDirectories creates all given directories including their parents.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if IsDirectory(dir) {
			continue
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}
	return nil
}
