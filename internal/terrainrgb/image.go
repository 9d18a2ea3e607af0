package terrainrgb

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/gruppe-adler/lidar2raster/internal/grid"
)

// Image encodes every cell of g as one Terrain-RGB pixel. Row 0 of the
// image is the northern edge of the grid.
func Image(g *grid.Grid) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Cols, g.Rows))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			img.SetNRGBA(c, r, HeightToRgb(g.At(r, c)))
		}
	}
	return img
}

// Write saves the Terrain-RGB image of g as PNG, replacing any existing file.
func Write(path string, g *grid.Grid) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(out, Image(g)); err != nil {
		out.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	return out.Close()
}
