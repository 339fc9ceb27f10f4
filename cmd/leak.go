package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/session"
)

var (
	leakReason string
	leakRemark string
)

var leakCmd = &cobra.Command{
	Use:   "leak",
	Short: "Finish the running test as leaked",
	Long: `Close the running TEST segment with a leak outcome and open a LEAK
segment. The LEAK segment stays open in the ledger until the next start on
the same serial closes it, so the leak interval is measured automatically.

Reasons: ` + strings.Join(session.LeakReasons, ", ") + `.
A remark is required when the reason is Others. Without --reason the details
are prompted for interactively; cancelling returns to the running stopwatch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return leakRun(cmd)
	},
}

func init() {
	leakCmd.Flags().StringVar(&leakReason, "reason", "", "Leak reason")
	leakCmd.Flags().StringVar(&leakRemark, "remark", "", "Remark (required when reason is Others)")
	rootCmd.AddCommand(leakCmd)
}

func leakRun(cmd *cobra.Command) error {
	c, err := getCoordinator()
	if err != nil {
		return err
	}
	if !c.CanLeak() {
		return fmt.Errorf("no test is running")
	}

	serial := c.State().Vessel.Serial

	var p session.Prompter
	if cmd.Flags().Changed("reason") {
		p = &flagPrompter{reason: leakReason, remark: leakRemark}
	} else {
		p = newTerminalPrompter()
	}

	leakID, err := c.Leak(cmd.Context(), p)
	if err != nil {
		return fmt.Errorf("leak failed: %w", err)
	}
	if leakID == "" {
		ui.Info("LEAK cancelled. Returned to stopwatch.")
		return nil
	}

	ui.Success("LEAK recorded for %s (open segment %s)", serial, leakID)
	ui.Info("The leak interval will close automatically at the next start on %s.", serial)
	return nil
}
