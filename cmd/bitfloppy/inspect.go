package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [path]",
	Short: "List the volume, or print one file",
	Long: `inspect mounts the flash image read-only the way a USB host would and
lists every file on it. With a path argument it prints that file instead,
for example: bitfloppy inspect bip84/addresses.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	session, err := openHostSession()
	if err != nil {
		return err
	}
	defer session.discard()

	if len(args) == 1 {
		data, err := session.vol.ReadFile(args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	for _, name := range session.vol.Files() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
