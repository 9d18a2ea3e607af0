package terrainrgb

import (
	"image/color"
	"math"
)

/*
	The Mapbox Terrain-RGB Tiles use the following equation to decode
	height values from rgb.

	height = -10000 + ((R * 256 * 256 + G * 256 + B) * 0.1)

	To make things easier we'll replace (R * 256 * 256 + G * 256 + B) with x to get the following equation:
	height = -10000 + (x * 0.1)
	now we can solve the equation for x and get:
	x = 10 * height + 100000

	(R * 256^2 + G * 256^1 + B * 256^0) is x written as a Base256 number,
	so position 2 is r, position 1 is g and position 0 is b.
*/

// maxX is the largest value three bytes can hold.
const maxX = 1<<24 - 1

// HeightToRgb calculates rgb values from height. Heights outside the
// encodable range of -10000 to 1667721.5 are clamped, NaN becomes a fully
// transparent pixel.
func HeightToRgb(height float64) color.NRGBA {
	if math.IsNaN(height) {
		return color.NRGBA{}
	}

	x := math.Round(10*height + 100000)
	if x < 0 {
		x = 0
	} else if x > maxX {
		x = maxX
	}
	v := uint32(x)

	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}
}

// RgbToHeight calculates height from given rgb values. Transparent pixels
// decode to NaN.
func RgbToHeight(c color.NRGBA) float64 {
	if c.A == 0 {
		return math.NaN()
	}
	x := int64(c.R)<<16 | int64(c.G)<<8 | int64(c.B)

	return -10000.0 + float64(x)*0.1
}
