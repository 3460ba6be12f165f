package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valerio-vaccaro/BitFloppy/internal/config"
	"github.com/valerio-vaccaro/BitFloppy/internal/model"
	"github.com/valerio-vaccaro/BitFloppy/internal/record"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the persisted record",
	Long: `status reads the record partition directly. Secret material is never
printed; the mnemonic column only says whether one is present.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	log, err := stderrLogger()
	if err != nil {
		return err
	}
	store, err := record.Open(config.GetRecordDir(), log)
	if err != nil {
		return fmt.Errorf("failed to open record partition: %w", err)
	}
	defer store.Close()

	rec, err := store.Load()
	if err != nil {
		return err
	}

	mnemonic := "(none)"
	if !rec.Secret.Blank() {
		mnemonic = model.RedactedMarker
	}
	fmt.Fprintf(cmd.OutOrStdout(), "status: %s\nboot count: %d\nnetwork: %s\nmnemonic: %s\n",
		rec.Status, rec.RestartCounter, rec.Secret.Network, mnemonic)
	return nil
}
