package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ER-ALOK/BraTS18-Project/pkg/brats"
	"github.com/ER-ALOK/BraTS18-Project/pkg/config"
	"github.com/ER-ALOK/BraTS18-Project/pkg/evaluation"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		savePath   string
		modelName  string
		outputDir  string
		configPath string
		logLevel   string
		workers    int
		keepGoing  bool
	)

	cmd := &cobra.Command{
		Use:   "bratseval",
		Short: "Evaluate a BraTS tumor segmentation model",
		Long: "bratseval scores exported model predictions against ground-truth\n" +
			"segmentation masks with the dice coefficient, renders overlay\n" +
			"comparison figures for representative tumor slices, and reports\n" +
			"summary statistics per dataset partition.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logLevel)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}

			// Preflight: a missing save path or model export is a
			// configuration error reported before any computation
			if info, err := os.Stat(savePath); err != nil || !info.IsDir() {
				logger.Error("no such save-path directory", "path", savePath)
				return fmt.Errorf("no such save-path directory: %s", savePath)
			}
			modelPath := filepath.Join(savePath, modelName)
			if _, err := os.Stat(modelPath); err != nil {
				logger.Error("no such model export", "path", modelPath)
				return fmt.Errorf("no such model export: %s", modelPath)
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				logger.Error("failed to create output directory", "path", outputDir, "error", err)
				return err
			}

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				logger.Error("failed to load configuration", "path", configPath, "error", err)
				return err
			}
			// Verbose output raises the log level unless --log was
			// given explicitly
			if cfg.Output.Verbose && !cmd.Flags().Changed("log") {
				if logger, err = newLogger("debug"); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("workers") {
				cfg.Evaluation.Workers = workers
			}
			if cmd.Flags().Changed("keep-going") {
				cfg.Evaluation.ContinueOnError = keepGoing
			}

			return run(cmd, cfg, modelPath, outputDir, logger)
		},
	}

	cmd.Flags().StringVar(&savePath, "save-path", "", "Directory containing the trained model export")
	cmd.Flags().StringVar(&modelName, "model", "", "Name of the prediction export inside the save path")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for comparison figures")
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "Configuration file")
	cmd.Flags().StringVar(&logLevel, "log", "info", "Logging level (debug, info, warn, error)")
	cmd.Flags().IntVar(&workers, "workers", 1, "Number of patients to evaluate concurrently")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Skip failed patients instead of aborting the partition")
	cmd.MarkFlagRequired("save-path")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("output")

	return cmd
}

func run(cmd *cobra.Command, cfg *config.Config, modelPath, outputDir string, logger *slog.Logger) error {
	dataset, err := brats.NewDataSet(cfg.Dataset.Root, cfg.Dataset.Year)
	if err != nil {
		logger.Error("failed to open dataset", "error", err)
		return err
	}

	model, err := brats.NewPredictionStore(modelPath)
	if err != nil {
		logger.Error("failed to open model export", "error", err)
		return err
	}

	train, validation, test, err := dataset.Partitions()
	if err != nil {
		logger.Error("failed to load partitions", "error", err)
		return err
	}

	params := evaluation.Params{
		OutputDir:        outputDir,
		Threshold:        cfg.Evaluation.Threshold,
		Smooth:           cfg.Evaluation.Smooth,
		CropLeading:      cfg.Evaluation.CropLeading,
		ImagesPerPatient: cfg.Evaluation.ImagesPerPatient,
		SampleSeed:       cfg.Evaluation.SampleSeed,
		Workers:          cfg.Evaluation.Workers,
		ContinueOnError:  cfg.Evaluation.ContinueOnError,
	}

	evaluator := evaluation.New(model, dataset, params, logger)

	start := time.Now()
	reports, err := evaluator.EvaluateAll(cmd.Context(), train, validation, test)
	if err != nil {
		logger.Error("evaluation failed", "error", err)
		return err
	}

	logger.Info("evaluation complete",
		"partitions", len(reports),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// newLogger builds a text slog logger at the requested level.
func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l})
	return slog.New(handler), nil
}
