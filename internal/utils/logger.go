package utils

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/gruppe-adler/lidar2raster/internal/batch"
)

// NewLogger returns the logger for per file diagnostics. Progress lines are
// printed separately, so only warnings and errors are logged unless verbose
// is set.
func NewLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// ExitCode returns 0 if every input succeeded and 1 otherwise.
func ExitCode(report batch.Report) int {
	if report.Status != batch.Completed || report.Failed > 0 {
		return 1
	}
	return 0
}
