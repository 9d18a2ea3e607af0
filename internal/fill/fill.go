// Package fill closes gaps in binned grids by linear interpolation over a
// Delaunay triangulation of the set cells.
//
// Cells outside the convex hull of the set cells are left unset: the
// interpolation never extrapolates.
package fill

import (
	"errors"
	"math"

	"github.com/fogleman/delaunay"

	"github.com/gruppe-adler/lidar2raster/internal/grid"
)

// ErrOccupancyMismatch is returned when grids filled together do not share
// the same spec and the same set of set cells.
var ErrOccupancyMismatch = errors.New("grids do not share the same occupancy")

// Stats describes one fill pass.
type Stats struct {
	Known    int
	Filled   int
	Unfilled int
	// Degenerate is true when the known cells could not be triangulated,
	// e.g. because there are fewer than three or all are collinear.
	Degenerate bool
}

// barycentric tolerance; keeps cells on the hull boundary inside
const eps = 1e-12

// Linear fills the unset cells of all grids in place. The grids must share
// one occupancy, which is the case for the elevation and intensity grids of
// grid.BinMax. The triangulation is built once and every grid is blended
// with its own values.
func Linear(grids ...*grid.Grid) (Stats, error) {
	var stats Stats
	if len(grids) == 0 {
		return stats, nil
	}

	ref := grids[0]
	for _, g := range grids[1:] {
		if !sameOccupancy(ref, g) {
			return stats, ErrOccupancyMismatch
		}
	}

	known := make([]int, 0, ref.Count())
	for i, v := range ref.Data {
		if !math.IsNaN(v) {
			known = append(known, i)
		}
	}
	stats.Known = len(known)
	unset := len(ref.Data) - len(known)

	if unset == 0 || len(known) == 0 {
		stats.Unfilled = unset
		return stats, nil
	}
	if len(known) < 3 {
		stats.Unfilled = unset
		stats.Degenerate = true
		return stats, nil
	}

	// Triangulate in index space. The map from (col, row) to world
	// coordinates is a similarity, so the triangulation and the barycentric
	// weights are the same as in world space.
	points := make([]delaunay.Point, len(known))
	for i, idx := range known {
		points[i] = delaunay.Point{X: float64(idx % ref.Cols), Y: float64(idx / ref.Cols)}
	}

	tri, err := delaunay.Triangulate(points)
	if err != nil || len(tri.Triangles) == 0 {
		stats.Unfilled = unset
		stats.Degenerate = true
		return stats, nil
	}

	for t := 0; t+2 < len(tri.Triangles); t += 3 {
		stats.Filled += fillTriangle(grids, known,
			tri.Triangles[t], tri.Triangles[t+1], tri.Triangles[t+2], points)
	}
	stats.Unfilled = unset - stats.Filled

	return stats, nil
}

// scanSlack widens the column span of a scanline so cells exactly on an
// edge survive rounding; the barycentric test still decides.
const scanSlack = 1e-9

// fillTriangle writes the blended values of all unset cells inside the
// triangle (a, b, c) and returns how many cells it filled. Each row only
// visits the columns between the triangle's edges.
func fillTriangle(grids []*grid.Grid, known []int, a, b, c int, points []delaunay.Point) int {
	ref := grids[0]
	c0, r0 := points[a].X, points[a].Y
	c1, r1 := points[b].X, points[b].Y
	c2, r2 := points[c].X, points[c].Y

	det := (c1-c0)*(r2-r0) - (c2-c0)*(r1-r0)
	if det == 0 {
		return 0
	}

	minC, maxC := int(math.Min(c0, math.Min(c1, c2))), int(math.Max(c0, math.Max(c1, c2)))
	minR, maxR := int(math.Min(r0, math.Min(r1, r2))), int(math.Max(r0, math.Max(r1, r2)))
	edges := [3][2]delaunay.Point{
		{points[a], points[b]},
		{points[b], points[c]},
		{points[c], points[a]},
	}

	filled := 0
	for row := minR; row <= maxR; row++ {
		fr := float64(row)

		lo, hi := math.Inf(1), math.Inf(-1)
		for _, e := range edges {
			p, q := e[0], e[1]
			if fr < math.Min(p.Y, q.Y) || fr > math.Max(p.Y, q.Y) {
				continue
			}
			if p.Y == q.Y {
				lo, hi = math.Min(lo, math.Min(p.X, q.X)), math.Max(hi, math.Max(p.X, q.X))
				continue
			}
			x := p.X + (fr-p.Y)*(q.X-p.X)/(q.Y-p.Y)
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		if lo > hi {
			continue
		}
		from := max(minC, int(math.Ceil(lo-scanSlack)))
		to := min(maxC, int(math.Floor(hi+scanSlack)))

		for col := from; col <= to; col++ {
			idx := row*ref.Cols + col
			if !math.IsNaN(ref.Data[idx]) {
				continue
			}

			fc := float64(col)
			w1 := ((fc-c0)*(r2-r0) - (c2-c0)*(fr-r0)) / det
			w2 := ((c1-c0)*(fr-r0) - (fc-c0)*(r1-r0)) / det
			w0 := 1 - w1 - w2
			if w0 < -eps || w1 < -eps || w2 < -eps {
				continue
			}

			for _, g := range grids {
				g.Data[idx] = w0*g.Data[known[a]] + w1*g.Data[known[b]] + w2*g.Data[known[c]]
			}
			filled++
		}
	}
	return filled
}

func sameOccupancy(a, b *grid.Grid) bool {
	if a.Spec != b.Spec || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Data {
		if math.IsNaN(a.Data[i]) != math.IsNaN(b.Data[i]) {
			return false
		}
	}
	return true
}
