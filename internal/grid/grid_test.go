package grid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gruppe-adler/lidar2raster/internal/pointcloud"
)

func cloud(points ...[4]float64) *pointcloud.PointCloud {
	pc := &pointcloud.PointCloud{}
	for _, p := range points {
		pc.X = append(pc.X, p[0])
		pc.Y = append(pc.Y, p[1])
		pc.Z = append(pc.Z, p[2])
		pc.Intensity = append(pc.Intensity, uint16(p[3]))
		pc.Red = append(pc.Red, 0)
		pc.Green = append(pc.Green, 0)
		pc.Blue = append(pc.Blue, 0)
	}
	return pc
}

func TestSpecFor(t *testing.T) {
	spec, err := SpecFor(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, 1)
	require.NoError(t, err)
	assert.Equal(t, Spec{MinX: 0, MaxY: 1, Resolution: 1, Rows: 2, Cols: 2}, spec)

	spec, err = SpecFor(orb.Bound{Min: orb.Point{10.25, 20.5}, Max: orb.Point{12.75, 21}}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, spec.MinX)
	assert.Equal(t, 21.0, spec.MaxY)
	assert.Equal(t, 7, spec.Cols) // 10.0 .. 13.0
	assert.Equal(t, 2, spec.Rows) // 20.5 .. 21.0

	spec, err = SpecFor(orb.Bound{}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.Rows)
	assert.Equal(t, 1, spec.Cols)

	for _, res := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := SpecFor(orb.Bound{}, res)
		assert.ErrorIs(t, err, ErrResolution)
	}
}

func TestSpecForRejectsUnusableBounds(t *testing.T) {
	for name, bound := range map[string]orb.Bound{
		"infinite max":   {Min: orb.Point{0, 0}, Max: orb.Point{math.Inf(1), 1}},
		"infinite min":   {Min: orb.Point{0, math.Inf(-1)}, Max: orb.Point{1, 1}},
		"nan":            {Min: orb.Point{math.NaN(), 0}, Max: orb.Point{1, 1}},
		"huge extent":    {Min: orb.Point{0, 0}, Max: orb.Point{1e300, 1}},
		"too many cells": {Min: orb.Point{0, 0}, Max: orb.Point{20000, 20000}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := SpecFor(bound, 1)
			assert.ErrorIs(t, err, ErrBound)
		})
	}

	spec, err := SpecFor(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{999.5, 999.5}}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2000, spec.Cols)
	assert.Equal(t, 2000, spec.Rows)
}

func TestPixelWorldRoundTrip(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{155000.03, 463000.07}, Max: orb.Point{155012.4, 463009.9}}
	spec, err := SpecFor(bound, 0.1)
	require.NoError(t, err)
	gt := spec.GeoTransform()

	for r := 0; r < spec.Rows; r++ {
		for c := 0; c < spec.Cols; c++ {
			x, y := gt.World(r, c)
			sx, sy := spec.World(r, c)
			assert.Equal(t, sx, x)
			assert.Equal(t, sy, y)

			row, col, ok := spec.Index(x, y)
			require.True(t, ok)
			require.Equal(t, r, row)
			require.Equal(t, c, col)

			pr, pc := gt.Pixel(x, y)
			require.Equal(t, r, pr)
			require.Equal(t, c, pc)
		}
	}
}

func TestInteriorPointsAreNeverDropped(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bound := orb.Bound{Min: orb.Point{-50.3, 12.1}, Max: orb.Point{49.7, 87.6}}
	spec, err := SpecFor(bound, 0.25)
	require.NoError(t, err)

	pc := &pointcloud.PointCloud{}
	for i := 0; i < 10000; i++ {
		pc.X = append(pc.X, bound.Min.X()+rng.Float64()*(bound.Max.X()-bound.Min.X()))
		pc.Y = append(pc.Y, bound.Min.Y()+rng.Float64()*(bound.Max.Y()-bound.Min.Y()))
		pc.Z = append(pc.Z, rng.Float64())
		pc.Intensity = append(pc.Intensity, 1)
	}
	// the declared corners themselves
	pc.X = append(pc.X, bound.Min.X(), bound.Max.X())
	pc.Y = append(pc.Y, bound.Min.Y(), bound.Max.Y())
	pc.Z = append(pc.Z, 0, 0)
	pc.Intensity = append(pc.Intensity, 0, 0)

	_, _, stats := BinMax(spec, pc)
	assert.Equal(t, 0, stats.Dropped)
	assert.Equal(t, pc.Len(), stats.Points)
}

func TestOutOfBoundsPointsAreDroppedSilently(t *testing.T) {
	spec := Spec{MinX: 0, MaxY: 2, Resolution: 1, Rows: 2, Cols: 2}
	pc := cloud(
		[4]float64{0.5, 1.5, 1, 1},
		[4]float64{-0.5, 1.5, 9, 9},
		[4]float64{2.5, 1.5, 9, 9},
		[4]float64{0.5, 2.5, 9, 9},
		[4]float64{0.5, -0.5, 9, 9},
		[4]float64{1.5, 0.5, math.NaN(), 9},
	)

	elevation, intensity, stats := BinMax(spec, pc)
	assert.Equal(t, 5, stats.Dropped)
	assert.Equal(t, 1, stats.Cells)
	assert.Equal(t, 1, elevation.Count())
	assert.Equal(t, 1.0, elevation.At(0, 0))
	assert.Equal(t, 1.0, intensity.At(0, 0))
}

func TestBinMaxKeepsHighestPointAndItsIntensity(t *testing.T) {
	spec := Spec{MinX: 0, MaxY: 1, Resolution: 1, Rows: 1, Cols: 1}

	low := [4]float64{0.2, 0.2, 5.0, 50}
	high := [4]float64{0.7, 0.7, 7.0, 70}

	for name, pc := range map[string]*pointcloud.PointCloud{
		"low first":  cloud(low, high),
		"high first": cloud(high, low),
	} {
		t.Run(name, func(t *testing.T) {
			elevation, intensity, _ := BinMax(spec, pc)
			assert.Equal(t, 7.0, elevation.At(0, 0))
			assert.Equal(t, 70.0, intensity.At(0, 0))
		})
	}
}

func TestBinMaxFirstMaximumWinsTies(t *testing.T) {
	spec := Spec{MinX: 0, MaxY: 1, Resolution: 1, Rows: 1, Cols: 1}
	pc := cloud(
		[4]float64{0.1, 0.1, 3, 11},
		[4]float64{0.2, 0.2, 3, 22},
		[4]float64{0.3, 0.3, 2, 33},
	)

	elevation, intensity, _ := BinMax(spec, pc)
	assert.Equal(t, 3.0, elevation.At(0, 0))
	assert.Equal(t, 11.0, intensity.At(0, 0))
}

func TestBinMaxCornerPoints(t *testing.T) {
	pc := cloud(
		[4]float64{0, 0, 1.0, 10},
		[4]float64{1, 0, 2.0, 20},
		[4]float64{0, 1, 3.0, 30},
		[4]float64{1, 1, 4.0, 40},
	)
	spec, err := SpecFor(pc.Bound(), 1.0)
	require.NoError(t, err)

	elevation, intensity, stats := BinMax(spec, pc)
	assert.Equal(t, 0, stats.Dropped)
	assert.Equal(t, 4, stats.Cells)

	if diff := cmp.Diff([][]float64{{3, 4}, {1, 2}}, elevation.Rows2D()); diff != "" {
		t.Errorf("elevation mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]float64{{30, 40}, {10, 20}}, intensity.Rows2D()); diff != "" {
		t.Errorf("intensity mismatch (-want +got):\n%s", diff)
	}
}

func TestBinMaxEmptyCloud(t *testing.T) {
	spec := Spec{MinX: 100, MaxY: 200, Resolution: 0.5, Rows: 3, Cols: 4}
	elevation, intensity, stats := BinMax(spec, &pointcloud.PointCloud{})

	assert.Equal(t, BinStats{}, stats)
	rows, cols := elevation.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)

	nan := math.NaN()
	want := [][]float64{{nan, nan, nan, nan}, {nan, nan, nan, nan}, {nan, nan, nan, nan}}
	assert.True(t, cmp.Equal(want, elevation.Rows2D(), cmpopts.EquateNaNs()))
	assert.True(t, cmp.Equal(want, intensity.Rows2D(), cmpopts.EquateNaNs()))
}

func TestGridFloat32(t *testing.T) {
	g := New(Spec{MinX: 5, MaxY: 6, Resolution: 2, Rows: 1, Cols: 2})
	g.Set(0, 1, 3.5)

	r := g.Float32("EPSG:28992")
	assert.Equal(t, 2, r.Width)
	assert.Equal(t, 1, r.Height)
	assert.True(t, math.IsNaN(float64(r.Data[0])))
	assert.Equal(t, float32(3.5), r.Data[1])
	assert.Equal(t, 5.0, r.Transform.OriginX)
	assert.Equal(t, 6.0, r.Transform.OriginY)
	assert.Equal(t, 2.0, r.Transform.PixelWidth)
	assert.Equal(t, "EPSG:28992", r.CRS)
}
