package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/valerio-vaccaro/BitFloppy/board"
)

var (
	flagMnemonic   string
	flagPassphrase string
	flagNetwork    string
	flagPSBT       string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger {format|unlock|sign|custom}",
	Short: "Drop a trigger file onto the volume, as a USB host would",
	Long: `trigger writes the protocol files the board looks for on its next boot:

  format   FORMAT.txt, wiping the device back to empty
  unlock   UNLOCK.txt, exposing secrets on a locked device
  sign     PSBT.txt with the --psbt payload
  custom   FORMAT.txt plus MNEMONIC.txt (and optional PASSPHRASE.txt,
           NETWORK.txt), provisioning user-supplied secrets

The files take effect when the board boots; run "bitfloppy boot" after.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"format", "unlock", "sign", "custom"},
	RunE:      runTrigger,
}

func init() {
	triggerCmd.Flags().StringVar(&flagMnemonic, "mnemonic", "", "mnemonic to provision (custom)")
	triggerCmd.Flags().StringVar(&flagPassphrase, "passphrase", "", "passphrase to provision (custom)")
	triggerCmd.Flags().StringVar(&flagNetwork, "network", "", "chain to provision, testnet or mainnet (custom)")
	triggerCmd.Flags().StringVar(&flagPSBT, "psbt", "", "transaction payload to request signing for (sign)")
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	if args[0] == "custom" && flagMnemonic == "" {
		return errors.New("custom provisioning requires --mnemonic")
	}

	session, err := openHostSession()
	if err != nil {
		return err
	}

	var werr error
	write := func(name string, data []byte) {
		if werr == nil {
			werr = session.vol.WriteFile(name, data)
		}
	}

	switch args[0] {
	case "format":
		write(board.TriggerFormat, nil)
	case "unlock":
		write(board.TriggerUnlock, nil)
	case "sign":
		write(board.TriggerSign, []byte(flagPSBT))
	case "custom":
		write(board.TriggerFormat, nil)
		write(board.InputMnemonic, []byte(flagMnemonic))
		if cmd.Flags().Changed("passphrase") {
			write(board.InputPassphrase, []byte(flagPassphrase))
		}
		if cmd.Flags().Changed("network") {
			write(board.InputNetwork, []byte(flagNetwork))
		}
	}
	if werr != nil {
		session.discard()
		return werr
	}
	return session.commit()
}
