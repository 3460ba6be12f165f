package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/valerio-vaccaro/BitFloppy/internal/config"
)

var (
	flagDataDir  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "bitfloppy",
	Short: "BitFloppy cold wallet board",
	Long: `bitfloppy runs a BitFloppy board against a data directory on disk.

The record partition and the flash image live under the data directory.
Triggers work exactly as they do over USB: drop a file, power the board,
read the result.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		if cmd.Flags().Changed("data-dir") {
			config.Get().DataDir = flagDataDir
		}
		if cmd.Flags().Changed("log-level") {
			config.Get().LogLevel = flagLogLevel
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "bitfloppy-data", "directory holding the record partition and the flash image")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
}

// stderrSink is where board logs go; stdout stays clean for command output.
func stderrSink() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

func stderrLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(config.GetLogLevel())
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(stderrSink()).Level(level).With().Timestamp().Logger(), nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
