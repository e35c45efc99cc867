// Package pipeline runs the full correction: load a GPS track and a
// magnetometer log, join them, report the path length before and after the
// correction, and write the corrected track.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/magtrack/internal/config"
	"github.com/banshee-data/magtrack/internal/correction"
	"github.com/banshee-data/magtrack/internal/db"
	"github.com/banshee-data/magtrack/internal/fsutil"
	"github.com/banshee-data/magtrack/internal/geo"
	"github.com/banshee-data/magtrack/internal/gpx"
	"github.com/banshee-data/magtrack/internal/monitoring"
	"github.com/banshee-data/magtrack/internal/plot"
	"github.com/banshee-data/magtrack/internal/sensor"
	"github.com/banshee-data/magtrack/internal/timeutil"
	"github.com/banshee-data/magtrack/internal/track"
)

// RunRecorder stores a summary of a finished run. *db.DB implements it.
type RunRecorder interface {
	RecordRun(ctx context.Context, r db.Run) (string, error)
}

// Options configures a single Run. Only GPXPath and CSVPath are required.
type Options struct {
	GPXPath    string
	CSVPath    string
	OutputPath string // defaults to config.DefaultOutputPath
	Join       sensor.JoinMode

	// Model defaults to correction.Legacy().
	Model *correction.Model

	// Optional renderings; empty paths disable them.
	PlotPath   string
	ChartPath  string
	PlotWidth  vg.Length
	PlotHeight vg.Length

	// Recorder, when set, receives the run summary after the output is written.
	Recorder RunRecorder

	FS     fsutil.FileSystem // defaults to fsutil.OSFileSystem
	Stdout io.Writer         // defaults to os.Stdout
	Clock  timeutil.Clock    // defaults to timeutil.RealClock
}

// OptionsFromConfig fills the output, join and rendering settings of Options
// from cfg.
func OptionsFromConfig(cfg *config.PipelineConfig, gpxPath, csvPath string) Options {
	return Options{
		GPXPath:    gpxPath,
		CSVPath:    csvPath,
		OutputPath: cfg.GetOutputPath(),
		Join:       cfg.GetJoinMode(),
		PlotPath:   cfg.GetPlotPath(),
		ChartPath:  cfg.GetChartPath(),
		PlotWidth:  vg.Length(cfg.GetPlotWidthInches()) * vg.Inch,
		PlotHeight: vg.Length(cfg.GetPlotHeightInches()) * vg.Inch,
	}
}

func (o *Options) setDefaults() {
	if o.OutputPath == "" {
		o.OutputPath = config.DefaultOutputPath
	}
	if o.Model == nil {
		o.Model = correction.Legacy()
	}
	if o.FS == nil {
		o.FS = fsutil.OSFileSystem{}
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.PlotWidth <= 0 {
		o.PlotWidth = 10 * vg.Inch
	}
	if o.PlotHeight <= 0 {
		o.PlotHeight = 8 * vg.Inch
	}
}

// Result holds every intermediate product of a run.
type Result struct {
	RunID      string
	Raw        track.Track // as loaded from the GPX file
	Merged     track.Track // Raw with sensor readings joined on
	Corrected  track.Track
	Merge      sensor.MergeStats
	Unfiltered float64 // meters along Raw
	Filtered   float64 // meters along Corrected
}

// Run executes the pipeline. The two distance lines are written to
// opts.Stdout as soon as each is known. Nothing is written to
// opts.OutputPath unless loading, merging and correcting all succeed.
//
// Failures to load an input are returned as errors matching track.ErrParse or
// track.ErrIO. A failure to render a plot or record the run is returned
// together with the Result, since the corrected track has been written by then.
func Run(ctx context.Context, opts Options) (*Result, error) {
	opts.setDefaults()
	started := opts.Clock.Now()
	res := &Result{RunID: uuid.NewString()}

	monitoring.Stagef("load", "reading track %s", opts.GPXPath)
	raw, err := gpx.LoadFile(opts.FS, opts.GPXPath)
	if err != nil {
		return nil, err
	}
	res.Raw = raw
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	monitoring.Stagef("load", "reading sensor log %s", opts.CSVPath)
	readings, err := sensor.LoadFile(opts.FS, opts.CSVPath)
	if err != nil {
		return nil, err
	}
	res.Merged, res.Merge = sensor.Merge(raw, readings, opts.Join)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Unfiltered = geo.PathDistance(res.Raw)
	if _, err := fmt.Fprintf(opts.Stdout, "Unfiltered distance: %.2f meters\n", res.Unfiltered); err != nil {
		return nil, &track.IOError{Op: "report", Err: err}
	}

	res.Corrected = opts.Model.Apply(res.Merged)
	res.Filtered = geo.PathDistance(res.Corrected)
	if _, err := fmt.Fprintf(opts.Stdout, "Filtered distance: %.2f meters\n", res.Filtered); err != nil {
		return nil, &track.IOError{Op: "report", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := gpx.WriteFile(opts.FS, opts.OutputPath, res.Corrected); err != nil {
		return nil, err
	}
	monitoring.Stagef("write", "wrote %d corrected samples to %s", len(res.Corrected), opts.OutputPath)

	if err := writeRenderings(opts, res); err != nil {
		return res, err
	}

	if opts.Recorder != nil {
		run := db.Run{
			ID:         res.RunID,
			GPXPath:    opts.GPXPath,
			CSVPath:    opts.CSVPath,
			OutputPath: opts.OutputPath,
			JoinMode:   opts.Join.String(),
			Samples:    res.Merge.Samples,
			Matched:    res.Merge.Matched,
			Unfiltered: res.Unfiltered,
			Filtered:   res.Filtered,
			CreatedAt:  started,
		}
		if _, err := opts.Recorder.RecordRun(ctx, run); err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
		monitoring.Stagef("history", "recorded run %s", res.RunID)
	}

	monitoring.Stagef("done", "run %s finished in %v", res.RunID, timeutil.Since(opts.Clock, started))
	return res, nil
}

func writeRenderings(opts Options, res *Result) error {
	if opts.PlotPath != "" {
		var buf bytes.Buffer
		if err := plot.TrackPNG(&buf, res.Raw, res.Corrected, opts.PlotWidth, opts.PlotHeight); err != nil {
			return fmt.Errorf("plot %s: %w", opts.PlotPath, err)
		}
		if err := opts.FS.WriteFile(opts.PlotPath, buf.Bytes(), 0644); err != nil {
			return &track.IOError{Op: "write", Path: opts.PlotPath, Err: err}
		}
		monitoring.Stagef("plot", "wrote %s", opts.PlotPath)
	}

	if opts.ChartPath != "" {
		var buf bytes.Buffer
		if err := plot.WriteDistanceChart(&buf, res.Raw, res.Corrected); err != nil {
			return fmt.Errorf("chart %s: %w", opts.ChartPath, err)
		}
		if err := opts.FS.WriteFile(opts.ChartPath, buf.Bytes(), 0644); err != nil {
			return &track.IOError{Op: "write", Path: opts.ChartPath, Err: err}
		}
		monitoring.Stagef("plot", "wrote %s", opts.ChartPath)
	}
	return nil
}
