// Package cmd implements this service's command-line entrypoints: a serve
// command that starts the HTTP adapter, and a translate command for
// ad-hoc local file translation outside of it.
package cmd

import (
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/odedia/translation-layer/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "translation-layer <command>",
	Short: "An OpenSubtitles-compatible subtitle translation proxy",
	Long: "translation-layer proxies subtitle catalog requests and a local\n" +
		"video library through a configurable LLM, translating on the way\n" +
		"through and caching by content fingerprint so repeat requests are free.\n\n" +
		"Example:\n  translation-layer serve --port 8080",
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Redf("Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is the XDG config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(translateCmd)
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logging.Init(true, level)
	return logging.Logger
}
