package manifest

import (
	"encoding/json"
	"os"
	"path"
	"time"

	"github.com/gruppe-adler/lidar2raster/internal/batch"
	"github.com/gruppe-adler/lidar2raster/internal/config"
)

// File describes the outcome for one input
type File struct {
	Input   string   `json:"input"`
	State   string   `json:"state"`
	Error   string   `json:"error,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
}

// Manifest represents the summary written next to the products of a run
type Manifest struct {
	Product    string    `json:"product"`
	CRS        string    `json:"crs"`
	Resolution float64   `json:"resolution"`
	Status     string    `json:"status"`
	Started    time.Time `json:"started"`
	Elapsed    string    `json:"elapsed"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Abandoned  int       `json:"abandoned"`
	Pending    int       `json:"pending"`
	Files      []File    `json:"files"`
}

// New builds the manifest of a finished batch. outputs returns the product
// files of an input; they are only listed for inputs that succeeded.
func New(product string, cfg config.Config, started time.Time, report batch.Report, outputs func(path string) []string) Manifest {
	m := Manifest{
		Product:    product,
		CRS:        cfg.CRS,
		Resolution: cfg.Resolution,
		Status:     string(report.Status),
		Started:    started.UTC(),
		Elapsed:    report.Elapsed.String(),
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		Abandoned:  report.Abandoned,
		Pending:    report.Pending,
		Files:      make([]File, len(report.Inputs)),
	}

	for i, input := range report.Inputs {
		f := File{Input: input, State: string(report.States[i])}
		if err := report.Errors[i]; err != nil {
			f.Error = err.Error()
		}
		if report.States[i] == batch.TaskSucceeded && outputs != nil {
			f.Outputs = outputs(input)
		}
		m.Files[i] = f
	}

	return m
}

// Write a <product>_manifest.json into outputDirectory and return its path
func Write(outputDirectory string, m Manifest) (string, error) {
	p := path.Join(outputDirectory, m.Product+"_manifest.json")

	// marshal
	bytes, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return p, err
	}

	// write file
	return p, os.WriteFile(p, bytes, 0o644)
}

// Read a manifest from given path
func Read(manifestPath string) (Manifest, error) {
	var val Manifest

	bytes, err := os.ReadFile(manifestPath)
	if err != nil {
		return val, err
	}

	err = json.Unmarshal(bytes, &val)
	return val, err
}
