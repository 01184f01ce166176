// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/pagerender/pagerender/internal/rendering"
	"github.com/pagerender/pagerender/internal/schemas"
	schemafiles "github.com/pagerender/pagerender/schemas"
)

// Config represents the render configuration that can be loaded from a JSON file.
// All fields are optional; CLI flags that are set explicitly take precedence.
type Config struct {
	// Rendering
	DPI       float64 `json:"dpi,omitempty" validate:"omitempty,gt=0,lte=2400"` // Resolution in dots per inch
	Width     int     `json:"width,omitempty" validate:"gte=0"`                 // Target width in pixels
	Height    int     `json:"height,omitempty" validate:"gte=0"`                // Target height in pixels
	Crop      []int   `json:"crop,omitempty" validate:"omitempty,len=4,dive,gte=0"`
	Gray      bool    `json:"gray,omitempty"`
	Antialias *bool   `json:"antialias,omitempty"` // nil means "use the default"
	MaxPixels int     `json:"max_pixels,omitempty" validate:"gte=0"`

	// Output
	OutputDir   string `json:"output_dir,omitempty"`
	Format      string `json:"format,omitempty" validate:"omitempty,oneof=png jpeg jpg"`
	JPEGQuality int    `json:"jpeg_quality,omitempty" validate:"gte=0,lte=100"`

	// Behavior
	Workers int  `json:"workers,omitempty" validate:"gte=0,lte=256"`
	Verbose bool `json:"verbose,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	antialias := true
	return Config{
		DPI:         rendering.DefaultDPI,
		Antialias:   &antialias,
		OutputDir:   ".",
		Format:      "png",
		JPEGQuality: 90,
	}
}

// LoadConfig loads configuration from a JSON file.
// The file is checked against the render config schema before it is decoded.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes and validates configuration JSON.
func ParseConfig(data []byte) (*Config, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("failed to parse config JSON: invalid JSON")
	}

	if err := schemas.ValidateJSONString(schemafiles.RenderConfig, string(data)); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if len(c.Crop) == 4 {
		if c.Crop[2] <= c.Crop[0] || c.Crop[3] <= c.Crop[1] {
			return fmt.Errorf("config error: 'crop' must be [x0, y0, x1, y1] with x0 < x1 and y0 < y1")
		}
	}

	if c.OutputDir != "" {
		if info, err := os.Stat(c.OutputDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: output_dir is not a directory: %s", c.OutputDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DPI == 0 {
		result.DPI = defaults.DPI
	}
	if result.Width == 0 {
		result.Width = defaults.Width
	}
	if result.Height == 0 {
		result.Height = defaults.Height
	}
	if len(result.Crop) == 0 {
		result.Crop = defaults.Crop
	}
	if result.Antialias == nil {
		result.Antialias = defaults.Antialias
	}
	if result.MaxPixels == 0 {
		result.MaxPixels = defaults.MaxPixels
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.Format == "" {
		result.Format = defaults.Format
	}
	if result.JPEGQuality == 0 {
		result.JPEGQuality = defaults.JPEGQuality
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}

	// Gray and Verbose: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ToOptions converts the configuration to rendering options.
func (c *Config) ToOptions() rendering.Options {
	opts := rendering.Options{
		DPI:    c.DPI,
		Width:  c.Width,
		Height: c.Height,
		Gray:   c.Gray,
	}
	if len(c.Crop) == 4 {
		opts.Crop = image.Rect(c.Crop[0], c.Crop[1], c.Crop[2], c.Crop[3])
	}
	if c.Antialias != nil {
		opts.Antialias = *c.Antialias
	}
	return opts
}
