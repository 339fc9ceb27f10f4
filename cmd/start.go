package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a test on the confirmed vessel",
	Long: `Start a timed test: opens a TEST segment in the ledger for the confirmed
vessel and starts the stopwatch. If a LEAK segment was left open for this
serial by an earlier session, it is closed automatically at the new start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func startRun(cmd *cobra.Command) error {
	c, err := getCoordinator()
	if err != nil {
		return err
	}

	switch c.Phase() {
	case models.PhaseAwaitingOperator:
		return fmt.Errorf("confirm the operator first with 'pneumatic operator <payload>'")
	case models.PhaseAwaitingVessel:
		return fmt.Errorf("confirm the vessel first with 'pneumatic vessel <payload>'")
	case models.PhaseRunning:
		return fmt.Errorf("a test is already running on %s", c.State().Vessel.Serial)
	}

	id, err := c.Start(cmd.Context())
	if err != nil {
		// The coordinator already rolled back the optimistic timer state.
		return fmt.Errorf("start failed: %w", err)
	}

	st := c.State()
	ui.Success("Testing started on %s (segment %s)", st.Vessel.Serial, id)
	ui.Info("Watch the stopwatch with 'pneumatic watch'")
	return nil
}
