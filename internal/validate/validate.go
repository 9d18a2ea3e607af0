package validate

import (
	"fmt"

	"github.com/gruppe-adler/lidar2raster/internal/pointcloud"
	"github.com/gruppe-adler/lidar2raster/internal/utils"
)

// InputDirectory validates that given directory exists and contains at least
// one point cloud, and returns the point clouds it contains.
func InputDirectory(dirPath string) ([]string, error) {
	if !utils.IsDirectory(dirPath) {
		return nil, fmt.Errorf("%s does not exist or is no directory", dirPath)
	}

	paths, err := utils.ListPointClouds(dirPath)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s contains no point clouds", dirPath)
	}

	return paths, nil
}

// InputFiles validates that every given path is an existing point cloud file
// of a supported format.
func InputFiles(paths []string) error {
	for _, p := range paths {
		if !utils.IsFile(p) {
			return fmt.Errorf("%s does not exist or is no file", p)
		}
		if !pointcloud.Supported(p) {
			return fmt.Errorf("%s: %w", p, pointcloud.ErrUnsupported)
		}
	}

	return nil
}

// Inputs combines the point clouds of dirPath, if given, with the explicitly
// named files.
func Inputs(dirPath string, files []string) ([]string, error) {
	var inputs []string
	if dirPath != "" {
		paths, err := InputDirectory(dirPath)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, paths...)
	}

	return append(inputs, files...), nil
}
