// Package ortho builds RGB orthoimages by nearest neighbour sampling of the
// point colours at every grid cell coordinate.
package ortho

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/gruppe-adler/lidar2raster/internal/grid"
	"github.com/gruppe-adler/lidar2raster/internal/pointcloud"
	"github.com/gruppe-adler/lidar2raster/internal/raster"
)

// ErrNoPoints is returned for clouds without points: there is no nearest
// neighbour to take a colour from.
var ErrNoPoints = errors.New("point cloud has no points")

// colourPoint is a planimetric point carrying the index of its source point.
type colourPoint struct {
	x, y  float64
	index int
}

func (p colourPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(colourPoint)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p colourPoint) Dims() int { return 2 }

func (p colourPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(colourPoint)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type colourPoints []colourPoint

func (p colourPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p colourPoints) Len() int                              { return len(p) }
func (p colourPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p colourPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{colourPoints: p, Dim: d}, kdtree.MedianOfRandoms(plane{colourPoints: p, Dim: d}, 100))
}

// plane sorts colourPoints along one dimension for pivot selection.
type plane struct {
	kdtree.Dim
	colourPoints
}

func (p plane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.colourPoints[i].x < p.colourPoints[j].x
	}
	return p.colourPoints[i].y < p.colourPoints[j].y
}
func (p plane) Swap(i, j int) { p.colourPoints[i], p.colourPoints[j] = p.colourPoints[j], p.colourPoints[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.colourPoints = p.colourPoints[start:end]
	return p
}

// Nearest samples the colour of the point closest to every cell coordinate
// of spec. Every cell receives a colour, so the result has no gaps.
func Nearest(spec grid.Spec, pc *pointcloud.PointCloud, crs string) (*raster.RGB, error) {
	if pc.Len() == 0 {
		return nil, ErrNoPoints
	}

	points := make(colourPoints, pc.Len())
	for i := range points {
		points[i] = colourPoint{x: pc.X[i], y: pc.Y[i], index: i}
	}
	tree := kdtree.New(points, false)

	n := spec.Len()
	data := make([]uint8, 3*n)
	for r := 0; r < spec.Rows; r++ {
		y := spec.Y(r)
		for c := 0; c < spec.Cols; c++ {
			nearest, dist := tree.Nearest(colourPoint{x: spec.X(c), y: y})
			if nearest == nil || math.IsInf(dist, 1) {
				continue
			}
			src := nearest.(colourPoint).index
			i := r*spec.Cols + c
			data[i] = pc.Red[src]
			data[n+i] = pc.Green[src]
			data[2*n+i] = pc.Blue[src]
		}
	}

	return &raster.RGB{
		Width:     spec.Cols,
		Height:    spec.Rows,
		Data:      data,
		Transform: spec.GeoTransform(),
		CRS:       crs,
	}, nil
}
