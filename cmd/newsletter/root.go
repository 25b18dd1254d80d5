package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsletter-agent/config"
	"newsletter-agent/logger"
)

// app carries what every subcommand needs after startup.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg config.Config
	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "newsletter",
		Short: "Generate HTML newsletters from web pages",
		Long: `newsletter fetches web pages, summarizes and scores them with a language model,
and renders the best of them into an HTML newsletter.

Example usage:
  newsletter serve                                  # HTTP API on :8000
  newsletter generate --links https://go.dev/blog   # one newsletter to stdout
  newsletter generate --links-file links.yaml --out news.html
  newsletter schedule                               # periodic generation and delivery`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (YAML); NEWSLETTER_CONFIG also works")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newServeCommand(a),
		newGenerateCommand(a),
		newScheduleCommand(a),
	)
	return root
}

func (a *app) init() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	log.Info("config loaded",
		zap.String("model", cfg.OpenAI.Model),
		zap.Int("max_summaries", cfg.Newsletter.MaxSummaries),
		zap.Bool("images", cfg.Images.Enabled),
		zap.Int("delivery_sinks", len(cfg.Delivery)))
	return nil
}
