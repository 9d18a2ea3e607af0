package grid

import (
	"math"

	"github.com/gruppe-adler/lidar2raster/internal/pointcloud"
)

// BinStats describes one binning pass.
type BinStats struct {
	Points  int
	Cells   int
	Dropped int
}

// BinMax bins pc into spec keeping the highest point per cell. The elevation
// and intensity grids are written together: the intensity of a cell always
// belongs to the point that set its elevation. Later points only replace a
// cell on a strictly greater z, so among equal maxima the first one wins.
// Points outside the grid are dropped and counted.
func BinMax(spec Spec, pc *pointcloud.PointCloud) (elevation, intensity *Grid, stats BinStats) {
	elevation = New(spec)
	intensity = New(spec)
	stats.Points = pc.Len()

	for i := 0; i < pc.Len(); i++ {
		row, col, ok := spec.Index(pc.X[i], pc.Y[i])
		if !ok || math.IsNaN(pc.Z[i]) {
			stats.Dropped++
			continue
		}

		idx := row*spec.Cols + col
		z := pc.Z[i]
		if current := elevation.Data[idx]; math.IsNaN(current) || z > current {
			if math.IsNaN(current) {
				stats.Cells++
			}
			elevation.Data[idx] = z
			intensity.Data[idx] = float64(pc.Intensity[i])
		}
	}

	return elevation, intensity, stats
}
