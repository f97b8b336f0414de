package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"platecensor/internal/censor"
	"platecensor/internal/config"
	"platecensor/internal/detect"
	"platecensor/internal/logger"
	"platecensor/internal/repository"
	"platecensor/internal/repository/sqlite"
	"platecensor/internal/video"
)

func newRootCommand() *cobra.Command {
	var (
		inputPath  string
		outputPath string
		threshold  float64
		padding    int
	)

	rootCmd := &cobra.Command{
		Use:           "censor",
		Short:         "Black out license plates in a video",
		Long: "Detects license plates frame by frame, tracks them across detector\n" +
			"misses and writes a copy of the video with every tracked plate\n" +
			"blacked out.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCensor(cmd, inputPath, outputPath, threshold, padding)
		},
	}

	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input video file (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output video file (default <input>_censored.mp4 in OUTPUT_DIR)")
	rootCmd.Flags().Float64Var(&threshold, "threshold", censor.DefaultConfThreshold, "Detection confidence threshold in [0, 1]")
	rootCmd.Flags().IntVar(&padding, "padding", censor.DefaultPadding, "Pixels of padding around each redacted box")
	rootCmd.MarkFlagRequired("input")

	return rootCmd
}

// effectiveOptions resolves threshold and padding between flags and
// environment config: an explicitly set flag wins, otherwise the
// config value applies.
func effectiveOptions(flags *pflag.FlagSet, cfg *config.Config, threshold float64, padding int) (float64, int) {
	if !flags.Changed("threshold") {
		threshold = cfg.ConfThreshold
	}
	if !flags.Changed("padding") {
		padding = cfg.Padding
	}
	return threshold, padding
}

func runCensor(cmd *cobra.Command, inputPath, outputPath string, threshold float64, padding int) error {
	// A missing .env is not an error.
	godotenv.Load()
	cfg := config.Load()

	threshold, padding = effectiveOptions(cmd.Flags(), cfg, threshold, padding)
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0, got %g", threshold)
	}

	log, err := logger.New(cfg.LogDirectory)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		outputPath = filepath.Join(cfg.OutputDir, base+"_censored.mp4")
	}

	detector, err := detect.NewDNNDetector(cfg.ModelPath, cfg.NetConfigPath, log)
	if err != nil {
		return err
	}
	defer detector.Close()

	opts := censor.Options{
		ConfThreshold: threshold,
		Padding:       padding,
		MaxAge:        cfg.MaxAge,
		IoUThreshold:  cfg.IoUThreshold,
		SmoothFactor:  cfg.SmoothFactor,
	}
	pipeline := censor.New(detector, opts, log)

	var recorder *repository.RunRecorder
	if cfg.DBPath != "" {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening run database: %w", err)
		}
		defer db.Close()

		recorder, err = repository.NewRunRecorder(
			sqlite.NewRunRepository(db), sqlite.NewTrackEventRepository(db),
			inputPath, outputPath)
		if err != nil {
			return err
		}
		pipeline.RecordTo(recorder)
	}

	pipeline.OnProgress(func(done, total int) {
		if recorder != nil {
			recorder.SetTotal(total)
		}
		if total > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "\rframe %d/%d (%.0f%%)", done, total, float64(done)/float64(total)*100)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "\rframe %d", done)
		}
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := pipeline.Run(ctx,
		func() (censor.Source, error) { return video.OpenSource(inputPath) },
		func(width, height int, fps float64) (censor.Sink, error) {
			return video.CreateSink(outputPath, width, height, fps)
		})

	if recorder != nil {
		if err := recorder.Finish(runErr); err != nil {
			log.Warning("finalizing run report: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\ncensored video written to %s\n", outputPath)
	return nil
}
