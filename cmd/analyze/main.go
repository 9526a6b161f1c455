// Command analyze runs one analysis over a CSV dataset (or the synthetic
// demo profile) and writes the result as JSON or as an HTML decision report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"hvacsight/internal/config"
	"hvacsight/internal/dataset"
	"hvacsight/internal/logging"
	"hvacsight/internal/models"
	"hvacsight/internal/pipeline"
	"hvacsight/internal/report"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		inputPath   = flag.String("input", "", "path to CSV dataset (- for stdin)")
		demo        = flag.Bool("demo", false, "analyze the built-in synthetic dataset")
		demoHours   = flag.Int("demo-hours", 168, "size of the synthetic dataset")
		horizon     = flag.Int("horizon", 0, "forecast horizon in steps (overrides config)")
		sensitivity = flag.String("sensitivity", "", "anomaly sensitivity: Low, Medium or High (overrides config)")
		format      = flag.String("format", "json", "output format: json or html")
		outputPath  = flag.String("output", "", "output file (default stdout)")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := logging.NewLogger(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(log, "failed to load config", err)
	}
	if *horizon > 0 {
		cfg.Analysis.Horizon = *horizon
	}
	if *sensitivity != "" {
		cfg.Analysis.Sensitivity = config.Sensitivity(*sensitivity)
	}
	if err := cfg.Analysis.Validate(); err != nil {
		fatal(log, "invalid analysis settings", err)
	}

	raw, err := loadTable(*inputPath, *demo, *demoHours)
	if err != nil {
		fatal(log, "failed to load dataset", err)
	}

	result, err := pipeline.New(cfg.Analysis, log).Run(context.Background(), raw)
	if err != nil {
		// Schema failures carry the exact missing-column detail; print it as is.
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	out, cleanup, err := openOutput(*outputPath)
	if err != nil {
		fatal(log, "failed to open output", err)
	}
	defer cleanup()

	if err := writeResult(out, result, *format, log); err != nil {
		fatal(log, "failed to write result", err)
	}
}

func loadTable(inputPath string, demo bool, demoHours int) (models.RawTable, error) {
	if demo {
		return dataset.Demo(demoHours), nil
	}
	switch inputPath {
	case "":
		return models.RawTable{}, fmt.Errorf("either -input or -demo is required")
	case "-":
		return dataset.ReadCSV(os.Stdin)
	}
	f, err := os.Open(inputPath)
	if err != nil {
		return models.RawTable{}, err
	}
	defer f.Close()
	return dataset.ReadCSV(f)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func writeResult(w io.Writer, result *models.AnalysisResult, format string, log *logging.Logger) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "html":
		return report.NewHTMLReporter(log).Write(w, result)
	}
	return fmt.Errorf("unknown format %q (want json or html)", format)
}

func fatal(log *logging.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
