package raster

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GeoTransform maps pixel indices to world coordinates. Pixel (0, 0) sits at
// (OriginX, OriginY), rows grow southward by PixelHeight and columns eastward
// by PixelWidth.
type GeoTransform struct {
	OriginX, OriginY        float64
	PixelWidth, PixelHeight float64
}

// World returns the coordinate of the pixel at (row, col).
func (t GeoTransform) World(row, col int) (x, y float64) {
	return t.OriginX + float64(col)*t.PixelWidth, t.OriginY - float64(row)*t.PixelHeight
}

// Pixel returns the pixel containing the world coordinate (x, y).
// The result may lie outside the raster.
func (t GeoTransform) Pixel(x, y float64) (row, col int) {
	col = int(math.Floor((x-t.OriginX)/t.PixelWidth + 1e-9))
	row = int(math.Floor((t.OriginY-y)/t.PixelHeight + 1e-9))
	return row, col
}

// Float32 is a single band raster. NaN marks cells without data.
type Float32 struct {
	Width, Height int
	Data          []float32
	Transform     GeoTransform
	CRS           string
}

// RGB is a three band raster stored band-major: all red samples, then all
// green, then all blue.
type RGB struct {
	Width, Height int
	Data          []uint8
	Transform     GeoTransform
	CRS           string
}

// At returns the colour of the pixel at (row, col).
func (r *RGB) At(row, col int) (red, green, blue uint8) {
	n := r.Width * r.Height
	i := row*r.Width + col
	return r.Data[i], r.Data[n+i], r.Data[2*n+i]
}

// ErrCRS is returned for CRS strings that are not of the form "EPSG:<code>".
var ErrCRS = errors.New("unsupported crs")

// ParseEPSG extracts the numeric code from "EPSG:28992".
func ParseEPSG(crs string) (uint16, error) {
	parts := strings.SplitN(strings.TrimSpace(crs), ":", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "EPSG") {
		return 0, fmt.Errorf("%w: %q", ErrCRS, crs)
	}
	code, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || code == 0 {
		return 0, fmt.Errorf("%w: %q", ErrCRS, crs)
	}
	return uint16(code), nil
}

// validateHeader checks everything except the samples.
func validateHeader(width, height int, t GeoTransform, crs string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("raster dimensions must be positive, got %dx%d", width, height)
	}
	for _, v := range [4]float64{t.OriginX, t.OriginY, t.PixelWidth, t.PixelHeight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("raster transform %+v is not finite", t)
		}
	}
	_, err := ParseEPSG(crs)
	return err
}

func (r *Float32) validate() error {
	if err := validateHeader(r.Width, r.Height, r.Transform, r.CRS); err != nil {
		return err
	}
	if len(r.Data) != r.Width*r.Height {
		return fmt.Errorf("raster has %d samples, want %d", len(r.Data), r.Width*r.Height)
	}
	return nil
}

func (r *RGB) validate() error {
	if err := validateHeader(r.Width, r.Height, r.Transform, r.CRS); err != nil {
		return err
	}
	if len(r.Data) != 3*r.Width*r.Height {
		return fmt.Errorf("raster has %d samples, want %d", len(r.Data), 3*r.Width*r.Height)
	}
	return nil
}
