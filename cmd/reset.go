package cmd

import (
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the local session",
	Long: `Discard the confirmed identities and any running stopwatch.

The ledger is never modified: segments already recorded stay as they are,
and an open LEAK segment remains open until the next start on its serial.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return resetRun()
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func resetRun() error {
	c, err := getCoordinator()
	if err != nil {
		return err
	}

	if err := c.Reset(); err != nil {
		return err
	}

	ui.Success("Session cleared. The ledger was not modified.")
	return nil
}
