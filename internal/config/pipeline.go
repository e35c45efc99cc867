package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/magtrack/internal/sensor"
)

// DefaultOutputPath is where the corrected track is written when nothing else
// is configured.
const DefaultOutputPath = "out.gpx"

// PipelineConfig holds the optional settings of a correction run. Every field
// is a pointer so a partial JSON file only overrides what it names; the Get*
// methods supply defaults for the rest. Command-line flags are applied on top
// with the Set* methods.
type PipelineConfig struct {
	OutputPath *string `json:"output_path,omitempty"`
	JoinMode   *string `json:"join_mode,omitempty"` // "index" or "time"

	// Run history (SQLite). Empty disables recording.
	DBPath *string `json:"db_path,omitempty"`

	// Optional renderings. Empty disables them.
	PlotPath         *string  `json:"plot_path,omitempty"`  // PNG
	ChartPath        *string  `json:"chart_path,omitempty"` // HTML
	PlotWidthInches  *float64 `json:"plot_width_inches,omitempty"`
	PlotHeightInches *float64 `json:"plot_height_inches,omitempty"`
}

func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields set to nil.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	if c.OutputPath != nil && strings.TrimSpace(*c.OutputPath) == "" {
		return fmt.Errorf("output_path must not be empty")
	}

	if c.JoinMode != nil {
		if _, err := sensor.ParseJoinMode(*c.JoinMode); err != nil {
			return err
		}
	}

	if c.PlotPath != nil && *c.PlotPath != "" && filepath.Ext(*c.PlotPath) != ".png" {
		return fmt.Errorf("plot_path must end in .png, got %q", *c.PlotPath)
	}
	if c.ChartPath != nil && *c.ChartPath != "" && filepath.Ext(*c.ChartPath) != ".html" {
		return fmt.Errorf("chart_path must end in .html, got %q", *c.ChartPath)
	}

	if c.PlotWidthInches != nil && *c.PlotWidthInches <= 0 {
		return fmt.Errorf("plot_width_inches must be positive, got %f", *c.PlotWidthInches)
	}
	if c.PlotHeightInches != nil && *c.PlotHeightInches <= 0 {
		return fmt.Errorf("plot_height_inches must be positive, got %f", *c.PlotHeightInches)
	}

	return nil
}

// SetOutputPath overrides output_path.
func (c *PipelineConfig) SetOutputPath(v string) { c.OutputPath = ptrString(v) }

// SetJoinMode overrides join_mode.
func (c *PipelineConfig) SetJoinMode(v string) { c.JoinMode = ptrString(v) }

// SetDBPath overrides db_path.
func (c *PipelineConfig) SetDBPath(v string) { c.DBPath = ptrString(v) }

// SetPlotPath overrides plot_path.
func (c *PipelineConfig) SetPlotPath(v string) { c.PlotPath = ptrString(v) }

// SetChartPath overrides chart_path.
func (c *PipelineConfig) SetChartPath(v string) { c.ChartPath = ptrString(v) }

// SetPlotSize overrides plot_width_inches and plot_height_inches.
func (c *PipelineConfig) SetPlotSize(width, height float64) {
	c.PlotWidthInches = ptrFloat64(width)
	c.PlotHeightInches = ptrFloat64(height)
}

// GetOutputPath returns output_path or DefaultOutputPath.
func (c *PipelineConfig) GetOutputPath() string {
	if c.OutputPath == nil || *c.OutputPath == "" {
		return DefaultOutputPath
	}
	return *c.OutputPath
}

// GetJoinMode returns the configured join mode, defaulting to positional.
func (c *PipelineConfig) GetJoinMode() sensor.JoinMode {
	if c.JoinMode == nil {
		return sensor.JoinIndex
	}
	m, err := sensor.ParseJoinMode(*c.JoinMode)
	if err != nil {
		return sensor.JoinIndex // default on parse error
	}
	return m
}

// GetDBPath returns db_path, or "" when run history is disabled.
func (c *PipelineConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetPlotPath returns plot_path, or "" when the PNG plot is disabled.
func (c *PipelineConfig) GetPlotPath() string {
	if c.PlotPath == nil {
		return ""
	}
	return *c.PlotPath
}

// GetChartPath returns chart_path, or "" when the HTML chart is disabled.
func (c *PipelineConfig) GetChartPath() string {
	if c.ChartPath == nil {
		return ""
	}
	return *c.ChartPath
}

// GetPlotWidthInches returns plot_width_inches or the default.
func (c *PipelineConfig) GetPlotWidthInches() float64 {
	if c.PlotWidthInches == nil {
		return 10
	}
	return *c.PlotWidthInches
}

// GetPlotHeightInches returns plot_height_inches or the default.
func (c *PipelineConfig) GetPlotHeightInches() float64 {
	if c.PlotHeightInches == nil {
		return 8
	}
	return *c.PlotHeightInches
}
