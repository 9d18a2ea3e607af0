// Package pipeline turns single point cloud files into raster products. A
// pipeline value carries everything a run needs, so its Process method can
// be handed to batch.Run directly.
package pipeline

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/gruppe-adler/lidar2raster/internal/config"
	"github.com/gruppe-adler/lidar2raster/internal/pointcloud"
)

// Settings shared by all pipelines.
type Settings struct {
	Resolution float64
	CRS        string
	// OutputDir is the root directory, every product has its own subdirectory.
	OutputDir string
	// Read loads a point cloud, pointcloud.Read when nil.
	Read   pointcloud.Reader
	Logger logrus.FieldLogger
}

func (s Settings) read(path string) (*pointcloud.PointCloud, error) {
	read := s.Read
	if read == nil {
		read = pointcloud.Read
	}

	pc, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	return pc, nil
}

// product returns the path of file in the directory of product.
func (s Settings) product(product, file string) string {
	return filepath.Join(config.ProductDir(s.OutputDir, product), file)
}

func (s Settings) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}
