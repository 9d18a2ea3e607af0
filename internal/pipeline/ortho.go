package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gruppe-adler/lidar2raster/internal/config"
	"github.com/gruppe-adler/lidar2raster/internal/grid"
	"github.com/gruppe-adler/lidar2raster/internal/ortho"
	"github.com/gruppe-adler/lidar2raster/internal/pointcloud"
	"github.com/gruppe-adler/lidar2raster/internal/raster"
)

// Ortho writes an RGB orthoimage for every point cloud.
type Ortho struct {
	Settings
}

// NewOrtho returns the orthoimage pipeline configured by cfg.
func NewOrtho(cfg config.Config, logger logrus.FieldLogger) *Ortho {
	return &Ortho{Settings{
		Resolution: cfg.Resolution,
		CRS:        cfg.CRS,
		OutputDir:  cfg.OutputDir,
		Logger:     logger,
	}}
}

// Directories lists the output directories Process writes to.
func (o *Ortho) Directories() []string {
	return []string{config.ProductDir(o.OutputDir, config.RGBDir)}
}

// Outputs returns the files Process writes for the point cloud at path.
func (o *Ortho) Outputs(path string) []string {
	return []string{o.product(config.RGBDir, pointcloud.Name(path)+".tif")}
}

// Rasterize samples the colours of pc onto its grid.
func (o *Ortho) Rasterize(pc *pointcloud.PointCloud) (*raster.RGB, error) {
	spec, err := grid.SpecFor(pc.Bound(), o.Resolution)
	if err != nil {
		return nil, err
	}

	img, err := ortho.Nearest(spec, pc, o.CRS)
	if err != nil {
		return nil, err
	}

	o.logger().WithFields(logrus.Fields{
		"points": pc.Len(),
		"width":  img.Width,
		"height": img.Height,
	}).Debug("sampled orthoimage")

	return img, nil
}

// Process reads the point cloud at path and writes its orthoimage.
func (o *Ortho) Process(path string) error {
	pc, err := o.read(path)
	if err != nil {
		return err
	}

	img, err := o.Rasterize(pc)
	if err != nil {
		return err
	}

	if err := raster.WriteRGB(o.Outputs(path)[0], img); err != nil {
		return fmt.Errorf("failed to write orthoimage: %w", err)
	}
	return nil
}
