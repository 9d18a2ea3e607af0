// Package preview renders small greyscale quicklooks of elevation grids.
package preview

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/nfnt/resize"

	"github.com/gruppe-adler/lidar2raster/internal/grid"
)

// Image maps the elevation range of g linearly onto grey values 1 to 255.
// Unset cells are black.
func Image(g *grid.Grid) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Cols, g.Rows))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	scale := 0.0
	if hi > lo {
		scale = 254 / (hi - lo)
	}

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			v := g.At(r, c)
			if math.IsNaN(v) {
				continue
			}
			img.SetGray(c, r, color.Gray{Y: uint8(1 + math.Round((v-lo)*scale))})
		}
	}

	return img
}

// Write saves a quicklook of g whose longer edge is at most size pixels.
// Grids smaller than size are written at their own size.
func Write(path string, g *grid.Grid, size uint) error {
	var img image.Image = Image(g)
	if uint(g.Cols) > size || uint(g.Rows) > size {
		img = resize.Thumbnail(size, size, img, resize.MitchellNetravali)
	}
	return saveImage(path, img)
}

func saveImage(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
