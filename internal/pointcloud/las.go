package pointcloud

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jblindsay/go-spatial/geospatialfiles/lidar"
)

// ErrNotLAS is returned for files without a LAS 1.x header.
var ErrNotLAS = errors.New("not a LAS 1.0-1.4 file")

// rgbOffset is the byte offset of the red, green and blue fields inside a
// point record, per point data format. Formats missing here carry no colour.
var rgbOffset = map[byte]int{
	2:  20,
	3:  28,
	5:  28,
	7:  30,
	8:  30,
	10: 30,
}

// ReadLAS loads an uncompressed LAS file. Colours are only present for
// point formats 2, 3, 5, 7, 8 and 10; other formats yield black points.
func ReadLAS(path string) (pc *PointCloud, err error) {
	header, err := readLASHeader(path)
	if err != nil {
		return nil, err
	}

	// the lidar package panics on unreadable point data
	defer func() {
		if r := recover(); r != nil {
			pc, err = nil, fmt.Errorf("%s: %v", path, r)
		}
	}()

	las, err := lidar.CreateFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer las.Close()

	// the lidar package misplaces scale and offset in 1.4 headers
	las.Header.XScaleFactor, las.Header.YScaleFactor, las.Header.ZScaleFactor = header.scale[0], header.scale[1], header.scale[2]
	las.Header.XOffset, las.Header.YOffset, las.Header.ZOffset = header.offset[0], header.offset[1], header.offset[2]
	las.Header.NumberPoints = header.points

	h := las.Header
	n := int64(h.NumberPoints)

	colours, err := readLASColours(path, h)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	b := &builder{}
	b.pc.X = make([]float64, 0, n)
	b.pc.Y = make([]float64, 0, n)
	b.pc.Z = make([]float64, 0, n)
	b.pc.Intensity = make([]uint16, 0, n)

	for i := int64(0); i < n; i++ {
		x, y, z := las.GetPointXYZ(i)
		var rgb [3]uint16
		if colours != nil {
			rgb = colours[i]
		}
		b.add(x, y, z, las.GetPointIntensity(i), rgb[0], rgb[1], rgb[2])
	}

	return b.build(), nil
}

type lasHeader struct {
	scale, offset [3]float64
	points        uint32
}

// readLASHeader checks signature and version before the file is handed to
// the lidar package, which panics on anything else, and decodes the fields
// needed to place points.
func readLASHeader(path string) (lasHeader, error) {
	var h lasHeader

	file, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer file.Close()

	head := make([]byte, 255)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return h, fmt.Errorf("%s: %w", path, ErrNotLAS)
	}
	head = head[:n]
	if len(head) < 227 || string(head[0:4]) != "LASF" || head[24] != 1 || head[25] > 4 {
		return h, fmt.Errorf("%s: %w", path, ErrNotLAS)
	}

	for i := 0; i < 3; i++ {
		h.scale[i] = math.Float64frombits(binary.LittleEndian.Uint64(head[131+8*i:]))
		h.offset[i] = math.Float64frombits(binary.LittleEndian.Uint64(head[155+8*i:]))
	}
	h.points = binary.LittleEndian.Uint32(head[107:111])

	// 1.4 files may leave the legacy count empty and store a 64 bit one
	if head[25] == 4 && h.points == 0 && len(head) >= 255 {
		count := binary.LittleEndian.Uint64(head[247:255])
		if count > math.MaxUint32 {
			return h, fmt.Errorf("%s: %d points exceed the supported maximum", path, count)
		}
		h.points = uint32(count)
	}
	return h, nil
}

// readLASColours reads the colour fields of every point record, or returns
// nil if the point format has none.
func readLASColours(path string, h lidar.LasHeader) ([][3]uint16, error) {
	offset, ok := rgbOffset[h.PointFormatID]
	if !ok {
		return nil, nil
	}
	recordLength := int(h.PointRecordLength)
	if recordLength < offset+6 {
		return nil, fmt.Errorf("point record length %d too short for format %d", recordLength, h.PointFormatID)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err := file.Seek(int64(h.OffsetToPoints), io.SeekStart); err != nil {
		return nil, err
	}
	reader := bufio.NewReader(file)

	colours := make([][3]uint16, h.NumberPoints)
	record := make([]byte, recordLength)
	for i := range colours {
		if _, err := io.ReadFull(reader, record); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		rgb := record[offset : offset+6]
		colours[i] = [3]uint16{
			binary.LittleEndian.Uint16(rgb[0:2]),
			binary.LittleEndian.Uint16(rgb[2:4]),
			binary.LittleEndian.Uint16(rgb[4:6]),
		}
	}
	return colours, nil
}
