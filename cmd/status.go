package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/output"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/timer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Show the session's wizard phase, the confirmed identities, and the
running stopwatch. Running 'pneumatic' with no subcommand does the same.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun() error {
	c, err := getCoordinator()
	if err != nil {
		return err
	}

	st := c.State()

	if st.Operator != nil {
		ui.Info("Operator: %s (%s), station %s, manpower %d",
			st.Operator.EmployeeName, st.Operator.EmployeeID, st.Operator.Station, st.Operator.Manpower)
	}
	if st.Vessel != nil {
		ui.Info("Vessel:   %s - %s (%s)", st.Vessel.Serial, st.Vessel.ProjectName, st.Vessel.VesselType)
	}

	switch c.Phase() {
	case models.PhaseAwaitingOperator:
		ui.Info("Ready to scan the operator: 'pneumatic operator <payload> --manpower N'")
	case models.PhaseAwaitingVessel:
		ui.Info("Ready to scan the vessel: 'pneumatic vessel <payload>'")
	case models.PhaseReady:
		ui.Info("%s Press Start with 'pneumatic start'.", output.Green("Ready."))
	case models.PhaseRunning:
		ui.Info("Segment:  %s, started %s", st.ActiveSegmentID, st.SessionStart.Local().Format("2006-01-02 15:04:05"))
		ui.Success("Testing %s - elapsed %s", output.Cyan(st.Vessel.Serial), output.Yellow(timer.FormatHHMMSS(c.Elapsed())))
	}
	return nil
}
