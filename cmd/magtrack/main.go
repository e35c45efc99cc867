// Command magtrack corrects a GPS track using a magnetometer log recorded
// alongside it and reports the path length before and after correction.
//
//	magtrack [flags] <gpx_file_path> <csv_file_path>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/banshee-data/magtrack/internal/config"
	"github.com/banshee-data/magtrack/internal/db"
	"github.com/banshee-data/magtrack/internal/monitoring"
	"github.com/banshee-data/magtrack/internal/pipeline"
	"github.com/banshee-data/magtrack/internal/security"
	"github.com/banshee-data/magtrack/internal/version"
)

const usageLine = "Usage: magtrack [flags] <gpx_file_path> <csv_file_path>"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit, so tests can drive it. A wrong
// number of positional arguments prints the usage line and returns 0.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("magtrack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Pipeline config JSON file")
	outPath := fs.String("out", config.DefaultOutputPath, "Corrected GPX output path (within the working or temp directory)")
	joinMode := fs.String("join", "index", "How sensor rows are paired with track points: index or time")
	dbPath := fs.String("db", "", "SQLite file to record the run in (disabled when empty)")
	plotPath := fs.String("plot", "", "Write a PNG plot of both tracks to this path")
	chartPath := fs.String("chart", "", "Write an HTML distance chart to this path")
	history := fs.Int("history", 0, "Print the last N runs recorded in -db and exit")
	quiet := fs.Bool("quiet", false, "Suppress diagnostic logging")
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usageLine)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	logger := log.New(stderr, "", log.LstdFlags)
	if *quiet {
		monitoring.SetLogger(nil)
	} else {
		monitoring.SetLogger(logger.Printf)
	}

	cfg := config.EmptyPipelineConfig()
	if *configPath != "" {
		loaded, err := config.LoadPipelineConfig(*configPath)
		if err != nil {
			logger.Printf("failed to load config: %v", err)
			return 1
		}
		cfg = loaded
	}
	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.SetOutputPath(*outPath)
		case "join":
			cfg.SetJoinMode(*joinMode)
		case "db":
			cfg.SetDBPath(*dbPath)
		case "plot":
			cfg.SetPlotPath(*plotPath)
		case "chart":
			cfg.SetChartPath(*chartPath)
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Printf("invalid options: %v", err)
		return 1
	}

	if *history > 0 {
		return printHistory(ctx, cfg.GetDBPath(), *history, stdout, logger)
	}

	if fs.NArg() != 2 {
		fmt.Fprintln(stdout, usageLine)
		return 0
	}

	checks := []struct{ path, ext string }{
		{cfg.GetOutputPath(), ".gpx"},
		{cfg.GetPlotPath(), ".png"},
		{cfg.GetChartPath(), ".html"},
	}
	for _, c := range checks {
		if c.path == "" {
			continue
		}
		if err := security.ValidateOutputPath(c.path, c.ext); err != nil {
			logger.Printf("refusing to write %s: %v", c.path, err)
			return 1
		}
	}

	opts := pipeline.OptionsFromConfig(cfg, fs.Arg(0), fs.Arg(1))
	opts.Stdout = stdout

	if path := cfg.GetDBPath(); path != "" {
		store, err := db.Open(path)
		if err != nil {
			logger.Printf("failed to open run history: %v", err)
			return 1
		}
		defer store.Close()
		opts.Recorder = store
	}

	if _, err := pipeline.Run(ctx, opts); err != nil {
		logger.Printf("magtrack: %v", err)
		return 1
	}
	return 0
}

func printHistory(ctx context.Context, path string, n int, stdout io.Writer, logger *log.Logger) int {
	if path == "" {
		logger.Printf("-history needs a database: set -db or db_path")
		return 1
	}
	store, err := db.Open(path)
	if err != nil {
		logger.Printf("failed to open run history: %v", err)
		return 1
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, n)
	if err != nil {
		logger.Printf("failed to list runs: %v", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return 0
	}
	for _, r := range runs {
		fmt.Fprintln(stdout, r.String())
	}
	return 0
}
