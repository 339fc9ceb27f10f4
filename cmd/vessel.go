package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/identity"
)

var vesselCmd = &cobra.Command{
	Use:   "vessel <payload>",
	Short: "Confirm the vessel for the next test session",
	Long: `Confirm the vessel under test from a scanned payload.

The payload format is version;projectName;serial;type where type is one of
EVAPORATOR, OIL_SEPARATOR, CONDENSER, or ECONOMIZER. The operator must be
confirmed first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return vesselRun(args[0])
	},
}

func init() {
	rootCmd.AddCommand(vesselCmd)
}

func vesselRun(payload string) error {
	v, err := identity.ParseVessel(payload)
	if err != nil {
		return err
	}

	c, err := getCoordinator()
	if err != nil {
		return err
	}
	if !c.State().OperatorConfirmed {
		return fmt.Errorf("confirm the operator first with 'pneumatic operator <payload>'")
	}
	if !c.CanConfirmVessel() {
		return fmt.Errorf("a vessel is already confirmed; run 'pneumatic reset' to start over")
	}

	if err := c.ConfirmVessel(v); err != nil {
		return err
	}

	ui.Success("Vessel %s confirmed: %s (%s)", v.Serial, v.ProjectName, v.VesselType)
	ui.Info("Ready. Press Start with 'pneumatic start'")
	return nil
}
