package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"NewsletterBuilder/internal/app"
	"NewsletterBuilder/internal/config"
	"NewsletterBuilder/internal/logging"
	"NewsletterBuilder/internal/usecase"
)

// exitCode lets a command choose the process status without printing an error.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

var (
	configPath string
	format     string
	topCount   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "newsletter",
		Short:         "Build a personalized daily newsletter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "output format override (txt, epub)")
	rootCmd.PersistentFlags().IntVar(&topCount, "top", 0, "number of articles to expand into full text")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scheduleCmd())

	if err := rootCmd.Execute(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, cleanup, err := build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res := application.Run(ctx)
			switch {
			case res.Status == usecase.StatusCompleted:
				fmt.Println(res.OutputPath)
				return nil
			case res.Status.EarlyExit():
				fmt.Fprintf(os.Stderr, "no newsletter: %s\n", res.Status)
				return exitCode(2)
			default:
				fmt.Fprintf(os.Stderr, "run failed: %s\n", res.Status)
				return exitCode(1)
			}
		},
	}
}

func scheduleCmd() *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, cleanup, err := build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return application.Schedule(ctx, every)
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "interval between runs (defaults to scheduler.interval)")
	return cmd
}

func build(ctx context.Context) (*app.Application, func(), error) {
	if configPath != "" {
		if err := os.Setenv("NEWSLETTER_CONFIG", configPath); err != nil {
			return nil, nil, fmt.Errorf("set config path: %w", err)
		}
	}
	cfg := config.Load()
	applyOverrides(&cfg, format, topCount)

	logger, logCloser := logging.New(cfg.Logging)
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logCloser.Close()
		return nil, nil, fmt.Errorf("build application: %w", err)
	}
	cleanup := func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
		_ = logCloser.Close()
	}
	return application, cleanup, nil
}

// applyOverrides layers command line flags over the loaded config. Format is
// normalized the same way the NEWSLETTER_OUTPUT_FORMAT variable is.
func applyOverrides(cfg *config.Config, format string, top int) {
	if f := strings.ToLower(strings.TrimSpace(format)); f != "" {
		cfg.Newsletter.OutputFormat = f
	}
	if top > 0 {
		cfg.Newsletter.TopArticleCount = top
	}
}
