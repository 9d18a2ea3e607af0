package config

import (
	"flag"
	"time"
)

// Flags are the command line options shared by all subcommands. Settings
// given as flags override the config file.
type Flags struct {
	flagSet *flag.FlagSet

	ConfigPath string
	InputDir   string
	Verbose    bool

	outputDir   string
	resolution  float64
	crs         string
	timeout     time.Duration
	workers     int
	terrainRGB  bool
	preview     bool
	previewSize uint
}

// BindFlags registers the shared options on flagSet. withProducts adds the
// switches of the optional DSM products.
func BindFlags(flagSet *flag.FlagSet, withProducts bool) *Flags {
	def := Default()
	f := &Flags{flagSet: flagSet}

	flagSet.StringVar(&f.ConfigPath, "config", "", "Path to TOML config file")
	flagSet.StringVar(&f.InputDir, "in", "", "Path to directory with point clouds")
	flagSet.BoolVar(&f.Verbose, "v", false, "Log debug details")
	flagSet.StringVar(&f.outputDir, "out", def.OutputDir, "Path to output directory")
	flagSet.Float64Var(&f.resolution, "res", def.Resolution, "Cell size in input units")
	flagSet.StringVar(&f.crs, "crs", def.CRS, "Coordinate reference system of the inputs")
	flagSet.DurationVar(&f.timeout, "timeout", def.Timeout.Duration, "Time budget of the whole run")
	flagSet.IntVar(&f.workers, "workers", def.Workers, "Number of files processed in parallel")

	if withProducts {
		flagSet.BoolVar(&f.terrainRGB, "terrainrgb", def.TerrainRGB, "Also write Terrain-RGB PNGs of the DSMs")
		flagSet.BoolVar(&f.preview, "preview", def.Preview, "Also write greyscale DSM previews")
		flagSet.UintVar(&f.previewSize, "preview-size", def.PreviewSize, "Maximum edge of the previews in pixels")
	}

	return f
}

// Config loads the config file, if any, applies the flags that were set
// explicitly and validates the result. Call it after the flag set was parsed.
func (f *Flags) Config() (Config, error) {
	cfg := Default()
	if f.ConfigPath != "" {
		var err error
		if cfg, err = Load(f.ConfigPath); err != nil {
			return cfg, err
		}
	}

	f.flagSet.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "out":
			cfg.OutputDir = f.outputDir
		case "res":
			cfg.Resolution = f.resolution
		case "crs":
			cfg.CRS = f.crs
		case "timeout":
			cfg.Timeout = Duration{f.timeout}
		case "workers":
			cfg.Workers = f.workers
		case "terrainrgb":
			cfg.TerrainRGB = f.terrainRGB
		case "preview":
			cfg.Preview = f.preview
		case "preview-size":
			cfg.PreviewSize = f.previewSize
		}
	})

	return cfg, cfg.Validate()
}
