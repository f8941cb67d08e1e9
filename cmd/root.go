// Package cmd implements the CLI commands for parapipe using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/parapipe/config"
	"github.com/gaurav-prasanna/parapipe/logging"
)

// Persistent flag variables.
var (
	flagConfig string
	flagDebug  bool
)

// Loaded by the root PersistentPreRunE before any subcommand runs.
var (
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "parapipe",
	Short: "parapipe — filter and restyle document paragraphs",
	Long: `parapipe is a deterministic paragraph pipeline for Word-style documents.
It drops structural noise (page numbers, blank-page markers, tables of
contents), assigns each remaining paragraph a style from declarative rules,
and writes the result as DOCX, Markdown, HTML, JSON or PDF.

Usage:
  parapipe format <input> [flags]
  parapipe rules <command> [flags]
  parapipe config`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./parapipe.yaml when present)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	_ = logging.Sync(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagDebug {
		loaded.Log.Level = "debug"
	}
	l, err := logging.New(loaded.Log)
	if err != nil {
		return err
	}
	cfg, logger = loaded, l
	logger.Debug("config loaded", zap.String("command", cmd.Name()), zap.String("method", cfg.Method))
	return nil
}
