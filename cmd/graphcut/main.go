package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"graphcut/internal/models"
	"graphcut/pkg/bayes"
	"graphcut/pkg/config"
	"graphcut/pkg/imageio"
	"graphcut/pkg/segmentation"
	"graphcut/pkg/visualization"
)

func main() {
	// Parse command line arguments
	imagePath := flag.String("image", "", "Image to segment")
	labelsPath := flag.String("labels", "", "Scribble image: red strokes mark foreground, blue strokes background")
	outputPath := flag.String("output", "labels.png", "Output label map (white foreground, black background)")
	overlayPath := flag.String("overlay", "overlay.png", "Output overlay of the labels on the image")
	configPath := flag.String("config", "graphcut.yaml", "YAML configuration file")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this path and exit")
	kappa := flag.Float64("kappa", 0, "Neighbour edge strength (overrides config)")
	sigma := flag.Float64("sigma", 0, "Colour difference sensitivity (overrides config)")
	classifier := flag.String("classifier", "", "Pixel classifier: naive or gaussian (overrides config)")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	// Validate inputs
	if *imagePath == "" || *labelsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *kappa > 0 {
		cfg.Segmentation.Kappa = *kappa
	}
	if *sigma > 0 {
		cfg.Segmentation.Sigma = *sigma
	}
	if *classifier != "" {
		cfg.Segmentation.Classifier = *classifier
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, cfg, *imagePath, *labelsPath, *outputPath, *overlayPath); err != nil {
		logger.Fatalw("segmentation failed", "error", err)
	}
}

func run(logger *zap.SugaredLogger, cfg *config.Config, imagePath, labelsPath, outputPath, overlayPath string) error {
	// Load the image and the scribbles at the configured scale
	img, err := imageio.Load(imagePath)
	if err != nil {
		return err
	}
	scribble, err := imageio.Load(labelsPath)
	if err != nil {
		return err
	}
	img = imageio.Downscale(img, cfg.Processing.Scale, imaging.Lanczos)
	scribble = imageio.Downscale(scribble, cfg.Processing.Scale, imaging.NearestNeighbor)

	im, err := imageio.ToModel(img, imageio.ColorSpace(cfg.Processing.ColorSpace))
	if err != nil {
		return err
	}
	mask := imageio.MaskFromScribble(scribble)
	logger.Infow("loaded inputs",
		"width", im.Width, "height", im.Height,
		"foregroundSeeds", mask.Count(models.Foreground), "backgroundSeeds", mask.Count(models.Background))

	// Initialize segmentation parameters
	params := &segmentation.Params{
		Kappa:          cfg.Segmentation.Kappa,
		Sigma:          cfg.Segmentation.Sigma,
		Classifier:     cfg.Segmentation.Classifier,
		Prior:          bayes.Prior(cfg.Segmentation.Prior),
		Regularization: cfg.Segmentation.Regularization,
		HardSeeds:      cfg.Segmentation.HardSeeds,
		Workers:        cfg.Processing.Workers,
		Timeout:        cfg.Segmentation.Timeout,
	}
	segmenter := segmentation.NewSegmenter(params, segmentation.WithLogger(logger))

	startTime := time.Now()
	res, err := segmenter.Segment(context.Background(), im, mask)
	if err != nil {
		return err
	}

	if err := visualization.SavePNG(outputPath, visualization.LabelImage(res.Labels)); err != nil {
		return err
	}
	logger.Infow("label map saved", "path", outputPath)

	if cfg.Output.SaveOverlay && overlayPath != "" {
		viewer, err := visualization.NewViewer(img, res.Labels, mask)
		if err != nil {
			return err
		}
		if err := visualization.SavePNG(overlayPath, viewer.Overlay()); err != nil {
			return err
		}
		logger.Infow("overlay saved", "path", overlayPath)
	}

	total := res.Labels.Width * res.Labels.Height
	fmt.Printf("Segmented %dx%d image in %.2f seconds\n", res.Labels.Width, res.Labels.Height, time.Since(startTime).Seconds())
	fmt.Printf("Foreground: %d of %d pixels (%.1f%%)\n", res.ForegroundPixels, total,
		100*float64(res.ForegroundPixels)/float64(total))
	fmt.Printf("Max flow / min cut: %.4f over %d nodes and %d edges\n", res.FlowValue, res.Nodes, res.Edges)
	return nil
}

// newLogger builds a console logger without stack traces
func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("graphcut").Sugar(), nil
}
