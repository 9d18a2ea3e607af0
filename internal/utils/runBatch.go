package utils

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gruppe-adler/lidar2raster/internal/batch"
	"github.com/gruppe-adler/lidar2raster/internal/config"
)

// RunBatch runs process for all inputs with the worker count and time budget
// of cfg and prints one progress line per finished file to out.
func RunBatch(ctx context.Context, out io.Writer, title string, inputs []string, process batch.Processor, cfg config.Config, logger logrus.FieldLogger) batch.Report {
	timer := time.Now()
	fmt.Fprintf(out, "▶️  %s (%d files, %d workers)\n", title, len(inputs), cfg.Workers)

	report := batch.Run(ctx, inputs, process, batch.Options{
		Workers: cfg.Workers,
		Timeout: cfg.Timeout.Duration,
		Logger:  logger,
		OnResult: func(done int, r batch.Result) {
			mark := "✔️ "
			if r.Err != nil {
				mark = "❌"
			}
			fmt.Fprintf(out, "    %s [%d/%d] %s in %s\n", mark, done, len(inputs), filepath.Base(r.Path), r.Duration.Round(time.Millisecond))
		},
	})

	switch report.Status {
	case batch.TimedOut:
		fmt.Fprintf(out, "⏱️  Time budget of %s used up\n", cfg.Timeout.Duration)
	case batch.Cancelled:
		fmt.Fprintln(out, "⛔  Cancelled")
	default:
		fmt.Fprintln(out, "✔️  "+title+" in", time.Now().Sub(timer).String())
	}
	fmt.Fprintf(out, "ℹ️  %d succeeded, %d failed, %d abandoned, %d not started\n",
		report.Succeeded, report.Failed, report.Abandoned, report.Pending)

	return report
}
