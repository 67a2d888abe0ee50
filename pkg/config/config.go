// Package config provides configuration loading and management for bssplot.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"bssplot/internal/models"
	"bssplot/pkg/anat"
	"bssplot/pkg/colors"
	"bssplot/pkg/streamlines"
	"bssplot/pkg/visualization"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Render parameters
	Render struct {
		// Width and Height are the output image size in pixels
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"render"`

	// Background slice parameters
	Slice struct {
		// Plane is sagittal, coronal or horizontal
		Plane string `yaml:"plane"`

		// ZeroToNaN makes zero voxels of the background transparent
		ZeroToNaN bool `yaml:"zeroToNaN"`

		// Interpolation is the display resampling filter
		Interpolation string `yaml:"interpolation"`
	} `yaml:"slice"`

	// Overlay parameters
	Overlay struct {
		Alpha         float64 `yaml:"alpha"`
		Threshold     float64 `yaml:"threshold"`
		Interpolation string  `yaml:"interpolation"`

		// Outline draws the threshold boundary
		Outline bool `yaml:"outline"`

		// OutlineColor is a hex color or a palette color such as
		// "Colorblind/Vermillion"
		OutlineColor string  `yaml:"outlineColor"`
		OutlineWidth float64 `yaml:"outlineWidth"`
		OutlineAlpha float64 `yaml:"outlineAlpha"`

		// DrawContours replaces the raster with iso-lines
		DrawContours  bool    `yaml:"drawContours"`
		ContourLevels int     `yaml:"contourLevels"`
		ContourWidth  float64 `yaml:"contourWidth"`

		// Cmap is a colormap or palette name, or "auto"
		Cmap string `yaml:"cmap"`

		// ZoomIn zooms to the visible overlay; false keeps the background view
		ZoomIn bool `yaml:"zoomIn"`
	} `yaml:"overlay"`

	// Streamline parameters
	Streamlines struct {
		LineWidth float64 `yaml:"lineWidth"`

		// ATol is the distance in mm from the slice within which points are drawn
		ATol float64 `yaml:"atol"`

		// Cmap colors streamlines by x direction when set
		Cmap string `yaml:"cmap"`
	} `yaml:"streamlines"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Render.Width = 800
	cfg.Render.Height = 800

	slice := anat.DefaultSliceOptions()
	cfg.Slice.Plane = slice.Plane.String()
	cfg.Slice.ZeroToNaN = slice.ZeroToNaN
	cfg.Slice.Interpolation = slice.Interpolation

	overlay := anat.DefaultOverlayOptions()
	cfg.Overlay.Alpha = overlay.Alpha
	cfg.Overlay.Threshold = overlay.Threshold
	cfg.Overlay.Interpolation = overlay.Interpolation
	cfg.Overlay.OutlineColor = colors.Hex(overlay.OutlineStyle.Color)
	cfg.Overlay.OutlineWidth = overlay.OutlineStyle.Width
	cfg.Overlay.OutlineAlpha = overlay.OutlineStyle.Alpha
	cfg.Overlay.ContourLevels = overlay.ContourLevels
	cfg.Overlay.ContourWidth = overlay.ContourWidth
	cfg.Overlay.Cmap = overlay.Colormap
	cfg.Overlay.ZoomIn = true

	lines := streamlines.DefaultPlotOptions()
	cfg.Streamlines.LineWidth = lines.LineWidth
	cfg.Streamlines.ATol = lines.ATol

	cfg.Output.Verbose = false

	return cfg
}

// Validate checks names and ranges so bad settings fail before any drawing.
func (c *Config) Validate() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("%w: render size %dx%d", ErrInvalidConfig, c.Render.Width, c.Render.Height)
	}
	if _, err := models.ParsePlane(c.Slice.Plane); err != nil {
		return err
	}
	for _, name := range []string{c.Slice.Interpolation, c.Overlay.Interpolation} {
		if _, err := visualization.Interpolator(name); err != nil {
			return err
		}
	}
	if c.Overlay.Alpha < 0 || c.Overlay.Alpha > 1 {
		return fmt.Errorf("%w: overlay alpha %v outside [0, 1]", ErrInvalidConfig, c.Overlay.Alpha)
	}
	if c.Overlay.Threshold < 0 {
		return fmt.Errorf("%w: negative overlay threshold %v", ErrInvalidConfig, c.Overlay.Threshold)
	}
	if c.Overlay.DrawContours && c.Overlay.ContourLevels <= 0 {
		return fmt.Errorf("%w: contour levels must be positive, got %d", ErrInvalidConfig, c.Overlay.ContourLevels)
	}
	if _, err := colors.ParseNamed(c.Overlay.OutlineColor); err != nil {
		return err
	}
	for _, name := range []string{c.Overlay.Cmap, c.Streamlines.Cmap} {
		if name == "" || name == anat.AutoColormap {
			continue
		}
		if _, err := colors.Lookup(name); err != nil {
			return err
		}
	}
	if c.Streamlines.ATol < 0 {
		return fmt.Errorf("%w: negative streamline tolerance %v", ErrInvalidConfig, c.Streamlines.ATol)
	}
	return nil
}

// SliceOptions converts the slice section into background options.
func (c *Config) SliceOptions() (anat.SliceOptions, error) {
	plane, err := models.ParsePlane(c.Slice.Plane)
	if err != nil {
		return anat.SliceOptions{}, err
	}
	return anat.SliceOptions{
		Plane:         plane,
		ZeroToNaN:     c.Slice.ZeroToNaN,
		Interpolation: c.Slice.Interpolation,
	}, nil
}

// OverlayOptions converts the overlay section into overlay options. The
// plane comes from the slice section so both layers cut the same way.
// ZoomIn is not applied here because preserving the view needs the axes.
func (c *Config) OverlayOptions() (anat.OverlayOptions, error) {
	plane, err := models.ParsePlane(c.Slice.Plane)
	if err != nil {
		return anat.OverlayOptions{}, err
	}
	outline, err := colors.ParseNamed(c.Overlay.OutlineColor)
	if err != nil {
		return anat.OverlayOptions{}, err
	}
	return anat.OverlayOptions{
		Plane:         plane,
		Alpha:         c.Overlay.Alpha,
		Threshold:     c.Overlay.Threshold,
		Interpolation: c.Overlay.Interpolation,
		Outline:       c.Overlay.Outline,
		OutlineStyle: anat.LineStyle{
			Color: outline,
			Width: c.Overlay.OutlineWidth,
			Alpha: c.Overlay.OutlineAlpha,
		},
		DrawContours:  c.Overlay.DrawContours,
		ContourLevels: c.Overlay.ContourLevels,
		ContourWidth:  c.Overlay.ContourWidth,
		Colormap:      c.Overlay.Cmap,
	}, nil
}

// StreamlineOptions converts the streamlines section into plot options.
func (c *Config) StreamlineOptions() (streamlines.PlotOptions, error) {
	opts := streamlines.PlotOptions{
		LineWidth: c.Streamlines.LineWidth,
		ATol:      c.Streamlines.ATol,
	}
	if c.Streamlines.Cmap != "" {
		cmap, err := colors.Lookup(c.Streamlines.Cmap)
		if err != nil {
			return streamlines.PlotOptions{}, err
		}
		opts.Colormap = cmap
	}
	return opts, nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
