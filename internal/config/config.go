package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gruppe-adler/lidar2raster/internal/raster"
)

// Config holds the settings shared by the dsm and rgb subcommands.
// Every field can be set in a TOML file and overridden by flags.
type Config struct {
	// Resolution is the cell size in the linear unit of the input coordinates.
	Resolution float64 `toml:"resolution"`
	// CRS is the coordinate reference system tag written to every raster, e.g. "EPSG:28992".
	CRS string `toml:"crs"`
	// OutputDir is the root directory, products are written to subdirectories of it.
	OutputDir string `toml:"output_dir"`
	// Timeout is the wall-clock budget of a whole batch.
	Timeout Duration `toml:"timeout"`
	// Workers is the number of files processed in parallel. 0 means runtime.NumCPU().
	Workers int `toml:"workers"`

	TerrainRGB  bool `toml:"terrain_rgb"`
	Preview     bool `toml:"preview"`
	PreviewSize uint `toml:"preview_size"`
}

// Duration wraps time.Duration so it can be written as "10h" in TOML files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Resolution:  0.1,
		CRS:         "EPSG:28992",
		OutputDir:   "derived_rasters",
		Timeout:     Duration{10 * time.Hour},
		Workers:     runtime.NumCPU(),
		PreviewSize: 1024,
	}
}

const maxFileSize = 1 * 1024 * 1024

// Load reads a TOML file on top of Default. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".toml" {
		return cfg, fmt.Errorf("config file must have .toml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	meta, err := toml.DecodeFile(cleanPath, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !(c.Resolution > 0) {
		return fmt.Errorf("resolution must be greater than 0, got %v", c.Resolution)
	}
	if c.CRS == "" {
		return errors.New("crs must not be empty")
	}
	if _, err := raster.ParseEPSG(c.CRS); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Duration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Preview && c.PreviewSize == 0 {
		return errors.New("preview_size must be greater than 0")
	}
	return nil
}

// Directory names of the products below OutputDir.
const (
	DSMDir        = "dsm"
	IntensityDir  = "intensity"
	RGBDir        = "rgb"
	TerrainRGBDir = "terrainrgb"
	PreviewDir    = "preview"
)

// ProductDir returns the directory of a product below the output root, e.g.
// ProductDir("out", DSMDir).
func ProductDir(outputDir, product string) string {
	return filepath.Join(outputDir, product)
}
