package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseText reads an ASCII point list. Every line holds one point:
//
//	x y z
//	x y z intensity
//	x y z red green blue
//	x y z intensity red green blue
//
// Fields may be separated by whitespace or commas. Lines starting with '#'
// are comments. A single non-numeric line before the first point (a CSV
// header) is skipped.
func ParseText(reader io.Reader) (*PointCloud, error) {
	b := &builder{}
	stillIsHeader := true
	lineNumber := 0

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || unicode.IsSpace(r)
		})
		if len(fields) == 0 {
			continue
		}

		// first content line may be a header like "x,y,z,intensity"
		if stillIsHeader {
			stillIsHeader = false
			if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
				continue
			}
		}

		if err := parsePointLine(fields, b); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return b.build(), nil
}

func parsePointLine(fields []string, b *builder) error {
	var values [7]float64

	n := len(fields)
	switch {
	case n == 3, n == 4, n == 6, n >= 7:
	default:
		return fmt.Errorf("expected 3, 4, 6 or 7 fields, got %d", n)
	}
	if n > 7 {
		n = 7
	}

	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("value %q is not finite", fields[i])
		}
		values[i] = f
	}

	var intensity, red, green, blue float64
	switch n {
	case 4:
		intensity = values[3]
	case 6:
		red, green, blue = values[3], values[4], values[5]
	case 7:
		intensity, red, green, blue = values[3], values[4], values[5], values[6]
	}

	for _, v := range [4]float64{intensity, red, green, blue} {
		if v < 0 || v > 0xffff {
			return fmt.Errorf("attribute value %v out of range", v)
		}
	}

	b.add(values[0], values[1], values[2], uint16(intensity), uint16(red), uint16(green), uint16(blue))
	return nil
}
