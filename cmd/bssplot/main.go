package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"bssplot/internal/models"
	"bssplot/pkg/anat"
	"bssplot/pkg/config"
	"bssplot/pkg/nifti"
	"bssplot/pkg/streamlines"
	"bssplot/pkg/visualization"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "bssplot: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, draws the requested layers and writes the PNG.
func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("bssplot", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Parse command line arguments
	bgPath := fs.String("bg", "", "Background NIfTI volume (.nii or .nii.gz)")
	overlayPath := fs.String("overlay", "", "Overlay NIfTI volume (.nii or .nii.gz)")
	tractsPath := fs.String("tracts", "", "Streamlines YAML file, points in mm")
	configPath := fs.String("config", "bssplot.yaml", "Configuration file")
	initConfig := fs.Bool("init-config", false, "Write a default configuration file to -config and exit")
	planeName := fs.String("plane", "", "Slice plane: sagittal, coronal or horizontal (overrides config)")
	slicePos := fs.Float64("slice", 0, "Slice position in mm (default: center of mass)")
	outPath := fs.String("out", "slice.png", "Output PNG filename")
	title := fs.String("title", "", "Plot title")
	width := fs.Int("width", 0, "Output width in pixels (overrides config)")
	height := fs.Int("height", 0, "Output height in pixels (overrides config)")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *initConfig {
		return config.CreateDefaultConfigFile(*configPath)
	}
	if *bgPath == "" && *overlayPath == "" && *tractsPath == "" {
		fs.Usage()
		return errors.New("nothing to plot: give -bg, -overlay or -tracts")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *planeName != "" {
		cfg.Slice.Plane = *planeName
	}
	if *width > 0 {
		cfg.Render.Width = *width
	}
	if *height > 0 {
		cfg.Render.Height = *height
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logger *zap.Logger
	if cfg.Output.Verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	defer logger.Sync()

	sliceSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "slice" {
			sliceSet = true
		}
	})

	startTime := time.Now()
	var bg, overlay *models.Volume
	if *bgPath != "" {
		if bg, err = nifti.Load(*bgPath); err != nil {
			return err
		}
	}
	if *overlayPath != "" {
		if overlay, err = nifti.Load(*overlayPath); err != nil {
			return err
		}
	}
	var tracts []models.Streamline
	if *tractsPath != "" {
		if tracts, err = streamlines.Load(*tractsPath); err != nil {
			return err
		}
	}

	sliceOpts, err := cfg.SliceOptions()
	if err != nil {
		return err
	}
	sliceOpts.Title = *title

	mm := *slicePos
	if !sliceSet {
		if mm, err = defaultSlice(bg, overlay, tracts, sliceOpts.Plane); err != nil {
			return err
		}
	}
	logger.Info("plotting slice",
		zap.Stringer("plane", sliceOpts.Plane),
		zap.Float64("mm", mm),
		zap.Bool("auto", !sliceSet))

	ax := visualization.NewAxes(visualization.WithLogger(logger))
	if bg != nil {
		if _, err := anat.PlotSlice(ax, bg, mm, sliceOpts); err != nil {
			return fmt.Errorf("background: %w", err)
		}
	}
	if overlay != nil {
		opts, err := cfg.OverlayOptions()
		if err != nil {
			return err
		}
		if !cfg.Overlay.ZoomIn && bg != nil {
			view := ax.View()
			opts.PreserveView = &view
		}
		res, err := anat.AddOverlay(ax, overlay, mm, opts)
		if err != nil {
			return fmt.Errorf("overlay: %w", err)
		}
		logger.Info("overlay added",
			zap.Stringer("scale", res.Scale.Kind),
			zap.Bool("visible", res.Bounds != nil))
	}
	if len(tracts) > 0 {
		opts, err := cfg.StreamlineOptions()
		if err != nil {
			return err
		}
		n, err := streamlines.PlotOnSlice(ax, tracts, mm, sliceOpts.Plane, opts)
		if err != nil {
			return fmt.Errorf("streamlines: %w", err)
		}
		logger.Info("streamlines added", zap.Int("drawn", n), zap.Int("total", len(tracts)))
	}
	if ax.Title == "" {
		ax.Title = *title
	}

	img, err := ax.Render(cfg.Render.Width, cfg.Render.Height)
	if err != nil {
		return err
	}
	if err := visualization.SavePNG(img, *outPath); err != nil {
		return err
	}

	logger.Info("figure saved",
		zap.String("path", *outPath),
		zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

// defaultSlice picks the slice position when none was given: the overlay's
// center of mass, then the busiest streamline position, then the
// background's center of mass.
func defaultSlice(bg, overlay *models.Volume, tracts []models.Streamline, plane models.Plane) (float64, error) {
	switch {
	case overlay != nil:
		return anat.ComSlice(overlay, plane)
	case len(tracts) > 0:
		return streamlines.FindOptimalSlice(tracts, models.IdentityAffine(), plane)
	case bg != nil:
		return anat.ComSlice(bg, plane)
	}
	return 0, errors.New("no data to choose a slice from")
}
