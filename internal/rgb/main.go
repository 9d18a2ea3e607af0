package rgb

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gruppe-adler/lidar2raster/internal/config"
	"github.com/gruppe-adler/lidar2raster/internal/manifest"
	"github.com/gruppe-adler/lidar2raster/internal/pipeline"
	"github.com/gruppe-adler/lidar2raster/internal/utils"
	"github.com/gruppe-adler/lidar2raster/internal/validate"
)

// Run is the program's entrypoint
func Run(flagSet *flag.FlagSet) {
	start := time.Now()

	flags := config.BindFlags(flagSet, false)
	flagSet.Parse(os.Args[2:])

	cfg, err := flags.Config()
	if err != nil {
		log.Fatal(err)
	}

	inputs, err := validate.Inputs(flags.InputDir, flagSet.Args())
	if err != nil {
		log.Fatal(err)
	}
	if len(inputs) == 0 {
		flagSet.PrintDefaults()
		os.Exit(1)
	}
	if err := validate.InputFiles(inputs); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✔️  Validated", len(inputs), "input files")

	o := pipeline.NewOrtho(cfg, utils.NewLogger(flags.Verbose))
	if err := utils.EnsureDirectories(o.Directories()...); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	report := utils.RunBatch(ctx, os.Stdout, "Building orthoimages", inputs, o.Process, cfg, o.Logger)
	stop()

	p, err := manifest.Write(cfg.OutputDir, manifest.New(config.RGBDir, cfg, start, report, o.Outputs))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("✔️  Wrote", p)

	fmt.Printf("\n    🎉  Finished in %s\n", time.Now().Sub(start).String())
	os.Exit(utils.ExitCode(report))
}
