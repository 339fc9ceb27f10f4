package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/session"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/timer"
)

var passRemark string

var passCmd = &cobra.Command{
	Use:   "pass",
	Short: "Finish the running test as passed",
	Long: `Close the running TEST segment with a passed outcome.

Without --remark, an optional remark is prompted for interactively;
cancelling the prompt returns to the running stopwatch without touching the
ledger. On success the local session is cleared completely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return passRun(cmd)
	},
}

func init() {
	passCmd.Flags().StringVar(&passRemark, "remark", "", "Optional remark recorded on the segment")
	rootCmd.AddCommand(passCmd)
}

func passRun(cmd *cobra.Command) error {
	c, err := getCoordinator()
	if err != nil {
		return err
	}
	if !c.CanPass() {
		return fmt.Errorf("no test is running")
	}

	var p session.Prompter
	if cmd.Flags().Changed("remark") {
		p = &flagPrompter{remark: passRemark}
	} else {
		p = newTerminalPrompter()
	}

	seg, err := c.Pass(cmd.Context(), p)
	if err != nil {
		return fmt.Errorf("pass failed: %w", err)
	}
	if seg == nil {
		ui.Info("PASS cancelled. Returned to stopwatch.")
		return nil
	}

	ui.Success("PASS recorded for %s after %s", seg.Serial, timer.FormatHHMMSS(*seg.DurationSec))
	ui.Info("Session cleared. Scan the next operator to begin again.")
	return nil
}
