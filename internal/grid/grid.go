package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/gruppe-adler/lidar2raster/internal/raster"
)

var (
	// ErrResolution is returned for resolutions that are not finite and positive.
	ErrResolution = errors.New("resolution must be a finite number greater than 0")
	// ErrBound is returned for extents that are not finite or need more than
	// MaxCells cells.
	ErrBound = errors.New("invalid grid extent")
)

// MaxCells limits the size of a single grid.
const MaxCells = 1 << 28

// Spec describes a regular grid. Rows grow southward from MaxY, columns grow
// eastward from MinX. Cell (r, c) is located at (MinX + c*Resolution, MaxY - r*Resolution).
type Spec struct {
	MinX, MaxY float64
	Resolution float64
	Rows, Cols int
}

// SpecFor returns the grid covering bound. The origin is snapped outward to
// multiples of res so neighbouring tiles share the same lattice, and both
// dimensions are ceil(extent/res) + 1 so points on the max edge still fall
// inside the grid. A zero bound yields a 1x1 grid.
func SpecFor(bound orb.Bound, res float64) (Spec, error) {
	if !(res > 0) || math.IsInf(res, 0) {
		return Spec{}, fmt.Errorf("%w, got %v", ErrResolution, res)
	}
	for _, v := range [4]float64{bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Spec{}, fmt.Errorf("%w: %v", ErrBound, bound)
		}
	}

	minX := math.Floor(bound.Min.X()/res) * res
	maxX := math.Ceil(bound.Max.X()/res) * res
	minY := math.Floor(bound.Min.Y()/res) * res
	maxY := math.Ceil(bound.Max.Y()/res) * res

	cols := math.Ceil((maxX-minX)/res) + 1
	rows := math.Ceil((maxY-minY)/res) + 1
	if !(cols >= 1 && rows >= 1 && cols*rows <= MaxCells) {
		return Spec{}, fmt.Errorf("%w: %v at resolution %v needs %v x %v cells", ErrBound, bound, res, rows, cols)
	}

	return Spec{
		MinX:       minX,
		MaxY:       maxY,
		Resolution: res,
		Cols:       int(cols),
		Rows:       int(rows),
	}, nil
}

// Dims returns the dimensions of the grid.
func (s Spec) Dims() (rows, cols int) {
	return s.Rows, s.Cols
}

// Len returns the number of cells.
func (s Spec) Len() int {
	return s.Rows * s.Cols
}

// edgeTolerance snaps coordinates that sit a rounding error short of a cell
// edge onto that edge, so cell coordinates map back to their own cell.
const edgeTolerance = 1e-9

// Index returns the cell containing (x, y). ok is false when the point lies
// outside the grid.
func (s Spec) Index(x, y float64) (row, col int, ok bool) {
	c := math.Floor((x-s.MinX)/s.Resolution + edgeTolerance)
	r := math.Floor((s.MaxY-y)/s.Resolution + edgeTolerance)
	if !(c >= 0 && c < float64(s.Cols) && r >= 0 && r < float64(s.Rows)) {
		return 0, 0, false
	}
	return int(r), int(c), true
}

// X returns the coordinate of column c.
func (s Spec) X(c int) float64 {
	return s.MinX + float64(c)*s.Resolution
}

// Y returns the coordinate of row r.
func (s Spec) Y(r int) float64 {
	return s.MaxY - float64(r)*s.Resolution
}

// World returns the coordinate of cell (row, col).
func (s Spec) World(row, col int) (x, y float64) {
	return s.X(col), s.Y(row)
}

// GeoTransform maps pixel (0, 0) to the grid origin.
func (s Spec) GeoTransform() raster.GeoTransform {
	return raster.GeoTransform{
		OriginX:     s.MinX,
		OriginY:     s.MaxY,
		PixelWidth:  s.Resolution,
		PixelHeight: s.Resolution,
	}
}

// Grid is a dense row-major array of cell values. NaN marks unset cells.
type Grid struct {
	Spec
	Data []float64
}

// New returns a grid with every cell unset.
func New(spec Spec) *Grid {
	data := make([]float64, spec.Len())
	for i := range data {
		data[i] = math.NaN()
	}
	return &Grid{Spec: spec, Data: data}
}

// At returns the value of cell (r, c).
// It will panic if r or c are out of bounds for the grid.
func (g *Grid) At(r, c int) float64 {
	return g.Data[r*g.Cols+c]
}

// Set sets the value of cell (r, c).
func (g *Grid) Set(r, c int, v float64) {
	g.Data[r*g.Cols+c] = v
}

// IsSet reports whether cell (r, c) holds a value.
func (g *Grid) IsSet(r, c int) bool {
	return !math.IsNaN(g.At(r, c))
}

// Count returns the number of set cells.
func (g *Grid) Count() int {
	n := 0
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Rows2D copies the grid into a slice of rows, north first.
func (g *Grid) Rows2D() [][]float64 {
	out := make([][]float64, g.Rows)
	for r := range out {
		out[r] = append([]float64(nil), g.Data[r*g.Cols:(r+1)*g.Cols]...)
	}
	return out
}

// Float32 converts the grid into a raster tagged with crs.
func (g *Grid) Float32(crs string) *raster.Float32 {
	data := make([]float32, len(g.Data))
	for i, v := range g.Data {
		data[i] = float32(v)
	}
	return &raster.Float32{
		Width:     g.Cols,
		Height:    g.Rows,
		Data:      data,
		Transform: g.GeoTransform(),
		CRS:       crs,
	}
}
