package pointcloud

import (
	"fmt"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
)

// PointCloud holds the attributes of all points of one capture as parallel
// arrays: index i refers to the same point in every slice.
// A PointCloud must not be modified after it was built.
type PointCloud struct {
	X, Y, Z   []float64
	Intensity []uint16
	Red       []uint8
	Green     []uint8
	Blue      []uint8
}

// Len returns the number of points.
func (pc *PointCloud) Len() int {
	return len(pc.X)
}

// Bound returns the planimetric extent of all points. An empty cloud has a
// zero bound.
func (pc *PointCloud) Bound() orb.Bound {
	if pc.Len() == 0 {
		return orb.Bound{}
	}
	return orb.Bound{
		Min: orb.Point{floats.Min(pc.X), floats.Min(pc.Y)},
		Max: orb.Point{floats.Max(pc.X), floats.Max(pc.Y)},
	}
}

// Validate checks that all attribute arrays have the same length.
func (pc *PointCloud) Validate() error {
	n := pc.Len()
	for name, l := range map[string]int{
		"y":         len(pc.Y),
		"z":         len(pc.Z),
		"intensity": len(pc.Intensity),
		"red":       len(pc.Red),
		"green":     len(pc.Green),
		"blue":      len(pc.Blue),
	} {
		if l != n {
			return fmt.Errorf("point cloud has %d x values but %d %s values", n, l, name)
		}
	}
	return nil
}

// builder accumulates points while a file is read. Colours are collected at
// full 16 bit depth and reduced once the whole file is known.
type builder struct {
	pc         PointCloud
	r, g, b    []uint16
	maxChannel uint16
}

func (b *builder) add(x, y, z float64, intensity, red, green, blue uint16) {
	b.pc.X = append(b.pc.X, x)
	b.pc.Y = append(b.pc.Y, y)
	b.pc.Z = append(b.pc.Z, z)
	b.pc.Intensity = append(b.pc.Intensity, intensity)
	b.r = append(b.r, red)
	b.g = append(b.g, green)
	b.b = append(b.b, blue)
	for _, c := range [3]uint16{red, green, blue} {
		if c > b.maxChannel {
			b.maxChannel = c
		}
	}
}

// build returns the finished cloud. If any channel uses more than 8 bits,
// all colours are treated as 16 bit and scaled down, otherwise they are
// kept as they are.
func (b *builder) build() *PointCloud {
	shift := uint(0)
	if b.maxChannel > 0xff {
		shift = 8
	}

	n := len(b.r)
	b.pc.Red = make([]uint8, n)
	b.pc.Green = make([]uint8, n)
	b.pc.Blue = make([]uint8, n)
	for i := 0; i < n; i++ {
		b.pc.Red[i] = uint8(b.r[i] >> shift)
		b.pc.Green[i] = uint8(b.g[i] >> shift)
		b.pc.Blue[i] = uint8(b.b[i] >> shift)
	}

	pc := b.pc
	return &pc
}
