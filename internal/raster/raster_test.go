package raster

import (
	"bytes"
	"encoding/binary"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func TestGeoTransformRoundTrip(t *testing.T) {
	gt := GeoTransform{OriginX: 155000, OriginY: 463000, PixelWidth: 0.5, PixelHeight: 0.5}

	for row := 0; row < 20; row++ {
		for col := 0; col < 20; col++ {
			x, y := gt.World(row, col)
			r, c := gt.Pixel(x, y)
			assert.Equal(t, row, r, "row of (%v, %v)", x, y)
			assert.Equal(t, col, c, "col of (%v, %v)", x, y)
		}
	}
}

func TestParseEPSG(t *testing.T) {
	code, err := ParseEPSG("EPSG:28992")
	require.NoError(t, err)
	assert.Equal(t, uint16(28992), code)

	code, err = ParseEPSG(" epsg:4326 ")
	require.NoError(t, err)
	assert.Equal(t, uint16(4326), code)

	for _, bad := range []string{"", "28992", "EPSG:", "EPSG:abc", "EPSG:0", "ESRI:102100", "EPSG:99999999"} {
		_, err := ParseEPSG(bad)
		assert.ErrorIs(t, err, ErrCRS, bad)
	}
}

func TestEncodeRGBDecodesWithStandardReader(t *testing.T) {
	r := &RGB{
		Width:  3,
		Height: 2,
		// band-major: red, green, blue
		Data: []uint8{
			10, 20, 30, 40, 50, 60,
			1, 2, 3, 4, 5, 6,
			100, 110, 120, 130, 140, 150,
		},
		Transform: GeoTransform{OriginX: 10, OriginY: 20, PixelWidth: 1, PixelHeight: 1},
		CRS:       "EPSG:28992",
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeRGB(&buf, r))

	img, err := tiff.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			wr, wg, wb := r.At(row, col)
			gr, gg, gb, _ := img.At(col, row).RGBA()
			assert.Equal(t, uint32(wr), gr>>8)
			assert.Equal(t, uint32(wg), gg>>8)
			assert.Equal(t, uint32(wb), gb>>8)
		}
	}
}

type tag struct {
	typ   uint16
	count uint32
	raw   []byte
}

// readTags parses the first IFD of a little-endian TIFF.
func readTags(t *testing.T, b []byte) map[uint16]tag {
	t.Helper()
	require.Equal(t, []byte{'I', 'I', 42, 0}, b[:4])

	sizes := map[uint16]int{dtASCII: 1, dtShort: 2, dtLong: 4, dtDouble: 8}
	off := binary.LittleEndian.Uint32(b[4:])
	n := int(binary.LittleEndian.Uint16(b[off:]))
	tags := make(map[uint16]tag, n)
	prev := -1
	for i := 0; i < n; i++ {
		e := b[int(off)+2+12*i:]
		id := binary.LittleEndian.Uint16(e)
		require.Greater(t, int(id), prev, "tags must be sorted")
		prev = int(id)
		typ := binary.LittleEndian.Uint16(e[2:])
		count := binary.LittleEndian.Uint32(e[4:])
		size := sizes[typ] * int(count)
		var raw []byte
		if size > 4 {
			at := binary.LittleEndian.Uint32(e[8:])
			raw = b[at : int(at)+size]
		} else {
			raw = e[8 : 8+size]
		}
		tags[id] = tag{typ, count, raw}
	}
	return tags
}

func TestEncodeFloat32Layout(t *testing.T) {
	nan := float32(math.NaN())
	r := &Float32{
		Width:     2,
		Height:    2,
		Data:      []float32{3, 4, nan, 2},
		Transform: GeoTransform{OriginX: 100, OriginY: 201, PixelWidth: 1, PixelHeight: 1},
		CRS:       "EPSG:28992",
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeFloat32(&buf, r))
	b := buf.Bytes()
	tags := readTags(t, b)

	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(tags[tImageWidth].raw))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(tags[tImageLength].raw))
	assert.Equal(t, uint16(32), binary.LittleEndian.Uint16(tags[tBitsPerSample].raw))
	assert.Equal(t, uint16(sampleFormatFloat), binary.LittleEndian.Uint16(tags[tSampleFormat].raw))
	assert.Equal(t, "nan\x00", string(tags[tGDALNoData].raw))

	tie := tags[tModelTiepoint]
	require.Equal(t, uint32(6), tie.count)
	assert.Equal(t, 100.0, math.Float64frombits(binary.LittleEndian.Uint64(tie.raw[24:])))
	assert.Equal(t, 201.0, math.Float64frombits(binary.LittleEndian.Uint64(tie.raw[32:])))

	keys := tags[tGeoKeyDirectory]
	require.Equal(t, uint32(16), keys.count)
	assert.Equal(t, uint16(keyProjectedCSType), binary.LittleEndian.Uint16(keys.raw[24:]))
	assert.Equal(t, uint16(28992), binary.LittleEndian.Uint16(keys.raw[30:]))

	offsets := tags[tStripOffsets]
	require.Equal(t, uint32(2), offsets.count)
	var got []float32
	for row := 0; row < 2; row++ {
		at := binary.LittleEndian.Uint32(offsets.raw[4*row:])
		for col := 0; col < 2; col++ {
			got = append(got, math.Float32frombits(binary.LittleEndian.Uint32(b[int(at)+4*col:])))
		}
	}
	assert.Equal(t, []float32{3, 4}, got[:2])
	assert.True(t, math.IsNaN(float64(got[2])))
	assert.Equal(t, float32(2), got[3])
}

func TestEncodeGeographicCRS(t *testing.T) {
	r := &Float32{Width: 1, Height: 1, Data: []float32{1}, CRS: "EPSG:4326",
		Transform: GeoTransform{PixelWidth: 1, PixelHeight: 1}}

	var buf bytes.Buffer
	require.NoError(t, EncodeFloat32(&buf, r))
	keys := readTags(t, buf.Bytes())[tGeoKeyDirectory]
	assert.Equal(t, uint16(modelTypeGeographic), binary.LittleEndian.Uint16(keys.raw[14:]))
	assert.Equal(t, uint16(keyGeographicType), binary.LittleEndian.Uint16(keys.raw[24:]))
}

func TestEncodeRejectsInvalidRasters(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodeFloat32(&buf, &Float32{Width: 0, Height: 1, CRS: "EPSG:28992"}))
	assert.Error(t, EncodeFloat32(&buf, &Float32{Width: 2, Height: 2, Data: []float32{1}, CRS: "EPSG:28992"}))
	assert.Error(t, EncodeRGB(&buf, &RGB{Width: 1, Height: 1, Data: []uint8{1, 2}, CRS: "EPSG:28992"}))
	assert.ErrorIs(t, EncodeFloat32(&buf, &Float32{Width: 1, Height: 1, Data: []float32{1}, CRS: "bogus"}), ErrCRS)
	assert.Error(t, EncodeFloat32(&buf, &Float32{Width: 1, Height: 1, Data: []float32{1}, CRS: "EPSG:28992",
		Transform: GeoTransform{OriginX: math.Inf(1), PixelWidth: 1, PixelHeight: 1}}))
}

func TestWriteLeavesFileUntouchedOnInvalidRaster(t *testing.T) {
	dir := t.TempDir()
	previous := bytes.Repeat([]byte{0xab}, 512)
	transform := GeoTransform{PixelWidth: 1, PixelHeight: 1}

	for name, write := range map[string]func(path string) error{
		"float32 bad crs": func(path string) error {
			return WriteFloat32(path, &Float32{Width: 1, Height: 1, Data: []float32{1}, CRS: "bogus", Transform: transform})
		},
		"float32 short data": func(path string) error {
			return WriteFloat32(path, &Float32{Width: 2, Height: 2, Data: []float32{1}, CRS: "EPSG:28992", Transform: transform})
		},
		"rgb bad crs": func(path string) error {
			return WriteRGB(path, &RGB{Width: 1, Height: 1, Data: []uint8{1, 2, 3}, CRS: "EPSG:", Transform: transform})
		},
		"rgb nan origin": func(path string) error {
			return WriteRGB(path, &RGB{Width: 1, Height: 1, Data: []uint8{1, 2, 3}, CRS: "EPSG:28992",
				Transform: GeoTransform{OriginY: math.NaN(), PixelWidth: 1, PixelHeight: 1}})
		},
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "existing.tif")
			require.NoError(t, os.WriteFile(path, previous, 0o644))

			assert.Error(t, write(path))

			b, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, previous, b)
		})
	}

	missing := filepath.Join(dir, "missing.tif")
	assert.ErrorIs(t, WriteFloat32(missing, &Float32{Width: 1, Height: 1, Data: []float32{1}, CRS: "bogus"}), ErrCRS)
	assert.NoFileExists(t, missing)
}

func TestWriteOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile_dsm.tif")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xff}, 4096), 0o644))

	r := &Float32{Width: 1, Height: 1, Data: []float32{7}, CRS: "EPSG:28992",
		Transform: GeoTransform{PixelWidth: 1, PixelHeight: 1}}
	require.NoError(t, WriteFloat32(path, r))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{'I', 'I', 42, 0}, b[:4])
	assert.Less(t, len(b), 4096)
}
