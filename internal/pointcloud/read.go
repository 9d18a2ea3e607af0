package pointcloud

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrCompressed is returned for LAZ files, which need a LASzip decoder.
	ErrCompressed = errors.New("compressed point clouds (laz) are not supported")
	// ErrUnsupported is returned for unknown file extensions.
	ErrUnsupported = errors.New("unsupported point cloud format")
)

// Reader loads a point cloud from a path.
type Reader func(path string) (*PointCloud, error)

// Extensions lists the suffixes Read knows about.
var Extensions = []string{".las", ".laz", ".xyz", ".txt", ".csv", ".xyz.gz", ".txt.gz", ".csv.gz"}

// Supported reports whether path has one of Extensions.
func Supported(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Name returns the base name of path without its point cloud extension,
// e.g. "C_25GN1" for "/data/C_25GN1.xyz.gz".
func Name(path string) string {
	base := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(base), ".gz") {
		base = base[:len(base)-3]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Read loads the point cloud at path. The format is chosen by extension.
func Read(path string) (*PointCloud, error) {
	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, ".las"):
		return ReadLAS(path)
	case strings.HasSuffix(lower, ".laz"):
		return nil, fmt.Errorf("%s: %w", path, ErrCompressed)
	case strings.HasSuffix(lower, ".gz"):
		return readText(path, true)
	case strings.HasSuffix(lower, ".xyz"), strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".csv"):
		return readText(path, false)
	}

	return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
}

func readText(path string, gzipped bool) (*PointCloud, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var reader io.Reader = file
	if gzipped {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	pc, err := ParseText(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pc, nil
}
