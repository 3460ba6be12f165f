package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/valerio-vaccaro/BitFloppy/board"
)

var (
	flagSingle      bool
	flagHaltRetries uint64
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Power the board and run boot cycles until it settles",
	Long: `boot powers the board once and chases the self-restarts it requests,
returning when a cycle completes without one. A halted board (corrupt
volume that cannot be reformatted) is retried after the same five second
pause the firmware takes before powering itself again.`,
	RunE: runBoot,
}

func init() {
	bootCmd.Flags().BoolVar(&flagSingle, "single", false, "run exactly one boot cycle instead of chasing restarts")
	bootCmd.Flags().Uint64Var(&flagHaltRetries, "halt-retries", 3, "how many times to retry a halted board")
	rootCmd.AddCommand(bootCmd)
}

func runBoot(cmd *cobra.Command, args []string) error {
	var result board.BootResult

	backoff := retry.WithMaxRetries(flagHaltRetries, retry.NewConstant(5*time.Second))
	err := retry.Do(cmd.Context(), backoff, func(ctx context.Context) error {
		res, err := bootOnce(ctx)
		if errors.Is(err, board.ErrHalted) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "status: %s\nboot: %d\nrestart required: %v\n",
		result.Status, result.RestartCounter, result.RestartRequired)
	return nil
}

func bootOnce(ctx context.Context) (board.BootResult, error) {
	dev, err := board.Open(stderrSink())
	if err != nil {
		return board.BootResult{}, err
	}
	defer dev.Close()

	if flagSingle {
		return dev.Boot(ctx)
	}
	return dev.PowerCycle(ctx)
}
