package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gruppe-adler/lidar2raster/internal/config"
	"github.com/gruppe-adler/lidar2raster/internal/fill"
	"github.com/gruppe-adler/lidar2raster/internal/grid"
	"github.com/gruppe-adler/lidar2raster/internal/pointcloud"
	"github.com/gruppe-adler/lidar2raster/internal/preview"
	"github.com/gruppe-adler/lidar2raster/internal/raster"
	"github.com/gruppe-adler/lidar2raster/internal/terrainrgb"
)

// DSM writes a gap filled surface model and the matching intensity raster
// for every point cloud.
type DSM struct {
	Settings
	TerrainRGB  bool
	Preview     bool
	PreviewSize uint
}

// NewDSM returns the DSM pipeline configured by cfg.
func NewDSM(cfg config.Config, logger logrus.FieldLogger) *DSM {
	return &DSM{
		Settings: Settings{
			Resolution: cfg.Resolution,
			CRS:        cfg.CRS,
			OutputDir:  cfg.OutputDir,
			Logger:     logger,
		},
		TerrainRGB:  cfg.TerrainRGB,
		Preview:     cfg.Preview,
		PreviewSize: cfg.PreviewSize,
	}
}

// Directories lists the output directories Process writes to.
func (d *DSM) Directories() []string {
	dirs := []string{
		config.ProductDir(d.OutputDir, config.DSMDir),
		config.ProductDir(d.OutputDir, config.IntensityDir),
	}
	if d.TerrainRGB {
		dirs = append(dirs, config.ProductDir(d.OutputDir, config.TerrainRGBDir))
	}
	if d.Preview {
		dirs = append(dirs, config.ProductDir(d.OutputDir, config.PreviewDir))
	}
	return dirs
}

// Outputs returns the files Process writes for the point cloud at path.
func (d *DSM) Outputs(path string) []string {
	name := pointcloud.Name(path)
	outputs := []string{
		d.product(config.DSMDir, name+"_dsm.tif"),
		d.product(config.IntensityDir, name+"_intensity.tif"),
	}
	if d.TerrainRGB {
		outputs = append(outputs, d.product(config.TerrainRGBDir, name+"_terrainrgb.png"))
	}
	if d.Preview {
		outputs = append(outputs, d.product(config.PreviewDir, name+"_dsm.png"))
	}
	return outputs
}

// Rasterize bins pc and fills the gaps of both grids.
func (d *DSM) Rasterize(pc *pointcloud.PointCloud) (elevation, intensity *grid.Grid, err error) {
	spec, err := grid.SpecFor(pc.Bound(), d.Resolution)
	if err != nil {
		return nil, nil, err
	}

	elevation, intensity, binStats := grid.BinMax(spec, pc)
	fillStats, err := fill.Linear(elevation, intensity)
	if err != nil {
		return nil, nil, err
	}

	d.logger().WithFields(logrus.Fields{
		"points":     binStats.Points,
		"dropped":    binStats.Dropped,
		"cells":      spec.Len(),
		"binned":     binStats.Cells,
		"filled":     fillStats.Filled,
		"unfilled":   fillStats.Unfilled,
		"degenerate": fillStats.Degenerate,
	}).Debug("rasterized point cloud")

	return elevation, intensity, nil
}

// Process reads the point cloud at path and writes its products.
func (d *DSM) Process(path string) error {
	pc, err := d.read(path)
	if err != nil {
		return err
	}

	elevation, intensity, err := d.Rasterize(pc)
	if err != nil {
		return err
	}

	outputs := d.Outputs(path)

	if err := raster.WriteFloat32(outputs[0], elevation.Float32(d.CRS)); err != nil {
		return fmt.Errorf("failed to write dsm: %w", err)
	}
	if err := raster.WriteFloat32(outputs[1], intensity.Float32(d.CRS)); err != nil {
		return fmt.Errorf("failed to write intensity: %w", err)
	}

	next := 2
	if d.TerrainRGB {
		if err := terrainrgb.Write(outputs[next], elevation); err != nil {
			return fmt.Errorf("failed to write terrain-rgb: %w", err)
		}
		next++
	}
	if d.Preview {
		if err := preview.Write(outputs[next], elevation, d.PreviewSize); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
	}

	return nil
}
