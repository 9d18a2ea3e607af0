package raster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// TIFF field types
const (
	dtASCII  = 2
	dtShort  = 3
	dtLong   = 4
	dtDouble = 12
)

// TIFF and GeoTIFF tags
const (
	tImageWidth                = 256
	tImageLength               = 257
	tBitsPerSample             = 258
	tCompression               = 259
	tPhotometricInterpretation = 262
	tStripOffsets              = 273
	tSamplesPerPixel           = 277
	tRowsPerStrip              = 278
	tStripByteCounts           = 279
	tPlanarConfiguration       = 284
	tSampleFormat              = 339
	tModelPixelScale           = 33550
	tModelTiepoint             = 33922
	tGeoKeyDirectory           = 34735
	tGDALNoData                = 42113
)

const (
	photometricBlackIsZero = 1
	photometricRGB         = 2

	sampleFormatUint  = 1
	sampleFormatFloat = 3
)

// GeoKeys
const (
	keyGTModelType      = 1024
	keyGTRasterType     = 1025
	keyGeographicType   = 2048
	keyProjectedCSType  = 3072
	modelTypeProjected  = 1
	modelTypeGeographic = 2
	rasterPixelIsArea   = 1
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

var byteOrder = binary.LittleEndian

func shortEntry(tag uint16, values ...uint16) ifdEntry {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		byteOrder.PutUint16(data[2*i:], v)
	}
	return ifdEntry{tag, dtShort, uint32(len(values)), data}
}

func longEntry(tag uint16, values ...uint32) ifdEntry {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		byteOrder.PutUint32(data[4*i:], v)
	}
	return ifdEntry{tag, dtLong, uint32(len(values)), data}
}

func doubleEntry(tag uint16, values ...float64) ifdEntry {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		byteOrder.PutUint64(data[8*i:], math.Float64bits(v))
	}
	return ifdEntry{tag, dtDouble, uint32(len(values)), data}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	data := append([]byte(s), 0)
	return ifdEntry{tag, dtASCII, uint32(len(data)), data}
}

// geoKeys builds the GeoKeyDirectory for an EPSG code. Codes in the 4000
// range are geographic coordinate systems, everything else is treated as
// projected.
func geoKeys(epsg uint16) []uint16 {
	modelType, csKey := uint16(modelTypeProjected), uint16(keyProjectedCSType)
	if epsg >= 4000 && epsg < 5000 {
		modelType, csKey = modelTypeGeographic, keyGeographicType
	}
	return []uint16{
		1, 1, 0, 3,
		keyGTModelType, 0, 1, modelType,
		keyGTRasterType, 0, 1, rasterPixelIsArea,
		csKey, 0, 1, epsg,
	}
}

type layout struct {
	width, height   int
	samplesPerPixel int
	bitsPerSample   uint16
	sampleFormat    uint16
	photometric     uint16
	transform       GeoTransform
	crs             string
	nodata          string
}

// encode writes a little-endian, uncompressed, one row per strip GeoTIFF.
// writeRow fills buf with the samples of one row.
func encode(w io.Writer, l layout, writeRow func(buf []byte, row int)) error {
	epsg, err := ParseEPSG(l.crs)
	if err != nil {
		return err
	}

	rowBytes := l.width * l.samplesPerPixel * int(l.bitsPerSample/8)

	bits := make([]uint16, l.samplesPerPixel)
	formats := make([]uint16, l.samplesPerPixel)
	for i := range bits {
		bits[i] = l.bitsPerSample
		formats[i] = l.sampleFormat
	}

	offsets := make([]uint32, l.height)
	counts := make([]uint32, l.height)
	for i := range counts {
		counts[i] = uint32(rowBytes)
	}

	entries := []ifdEntry{
		longEntry(tImageWidth, uint32(l.width)),
		longEntry(tImageLength, uint32(l.height)),
		shortEntry(tBitsPerSample, bits...),
		shortEntry(tCompression, 1),
		shortEntry(tPhotometricInterpretation, l.photometric),
		longEntry(tStripOffsets, offsets...),
		shortEntry(tSamplesPerPixel, uint16(l.samplesPerPixel)),
		longEntry(tRowsPerStrip, 1),
		longEntry(tStripByteCounts, counts...),
		shortEntry(tPlanarConfiguration, 1),
		shortEntry(tSampleFormat, formats...),
		doubleEntry(tModelPixelScale, l.transform.PixelWidth, l.transform.PixelHeight, 0),
		doubleEntry(tModelTiepoint, 0, 0, 0, l.transform.OriginX, l.transform.OriginY, 0),
		shortEntry(tGeoKeyDirectory, geoKeys(epsg)...),
	}
	if l.nodata != "" {
		entries = append(entries, asciiEntry(tGDALNoData, l.nodata))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// header, IFD, out-of-line values, pixel data
	const headerSize = 8
	ifdSize := 2 + 12*len(entries) + 4
	extraStart := headerSize + ifdSize
	extraSize := 0
	for _, e := range entries {
		if len(e.data) > 4 {
			extraSize += len(e.data) + len(e.data)%2
		}
	}
	dataStart := uint64(extraStart + extraSize)
	if dataStart+uint64(rowBytes)*uint64(l.height) > math.MaxUint32 {
		return fmt.Errorf("raster of %dx%d does not fit into a classic TIFF", l.width, l.height)
	}
	for i := range offsets {
		offsets[i] = uint32(dataStart) + uint32(i*rowBytes)
	}
	for i, e := range entries {
		if e.tag == tStripOffsets {
			entries[i] = longEntry(tStripOffsets, offsets...)
		}
	}

	bw := bufio.NewWriter(w)

	header := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	byteOrder.PutUint32(header[4:], headerSize)
	bw.Write(header)

	var word [12]byte
	byteOrder.PutUint16(word[:2], uint16(len(entries)))
	bw.Write(word[:2])

	next := uint32(extraStart)
	for _, e := range entries {
		byteOrder.PutUint16(word[0:], e.tag)
		byteOrder.PutUint16(word[2:], e.typ)
		byteOrder.PutUint32(word[4:], e.count)
		copy(word[8:], []byte{0, 0, 0, 0})
		if len(e.data) <= 4 {
			copy(word[8:], e.data)
		} else {
			byteOrder.PutUint32(word[8:], next)
			next += uint32(len(e.data) + len(e.data)%2)
		}
		bw.Write(word[:])
	}
	byteOrder.PutUint32(word[:4], 0)
	bw.Write(word[:4])

	for _, e := range entries {
		if len(e.data) > 4 {
			bw.Write(e.data)
			if len(e.data)%2 == 1 {
				bw.WriteByte(0)
			}
		}
	}

	buf := make([]byte, rowBytes)
	for row := 0; row < l.height; row++ {
		writeRow(buf, row)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// EncodeFloat32 writes r as a single band float32 GeoTIFF with NaN as nodata.
func EncodeFloat32(w io.Writer, r *Float32) error {
	if err := r.validate(); err != nil {
		return err
	}
	l := layout{
		width:           r.Width,
		height:          r.Height,
		samplesPerPixel: 1,
		bitsPerSample:   32,
		sampleFormat:    sampleFormatFloat,
		photometric:     photometricBlackIsZero,
		transform:       r.Transform,
		crs:             r.CRS,
		nodata:          "nan",
	}
	return encode(w, l, func(buf []byte, row int) {
		for col, v := range r.Data[row*r.Width : (row+1)*r.Width] {
			byteOrder.PutUint32(buf[4*col:], math.Float32bits(v))
		}
	})
}

// EncodeRGB writes r as an 8-bit, three band GeoTIFF without nodata marker.
func EncodeRGB(w io.Writer, r *RGB) error {
	if err := r.validate(); err != nil {
		return err
	}
	l := layout{
		width:           r.Width,
		height:          r.Height,
		samplesPerPixel: 3,
		bitsPerSample:   8,
		sampleFormat:    sampleFormatUint,
		photometric:     photometricRGB,
		transform:       r.Transform,
		crs:             r.CRS,
	}
	n := r.Width * r.Height
	return encode(w, l, func(buf []byte, row int) {
		base := row * r.Width
		for col := 0; col < r.Width; col++ {
			i := base + col
			buf[3*col] = r.Data[i]
			buf[3*col+1] = r.Data[n+i]
			buf[3*col+2] = r.Data[2*n+i]
		}
	})
}

// WriteFloat32 creates or truncates path and writes r into it. An invalid
// raster leaves path untouched.
func WriteFloat32(path string, r *Float32) error {
	if err := r.validate(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return writeFile(path, func(w io.Writer) error { return EncodeFloat32(w, r) })
}

// WriteRGB creates or truncates path and writes r into it. An invalid
// raster leaves path untouched.
func WriteRGB(path string, r *RGB) error {
	if err := r.validate(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return writeFile(path, func(w io.Writer) error { return EncodeRGB(w, r) })
}

func writeFile(path string, encode func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := encode(out); err != nil {
		out.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	return out.Close()
}
