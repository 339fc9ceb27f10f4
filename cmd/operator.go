package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/identity"
)

var operatorManpower string

var operatorCmd = &cobra.Command{
	Use:   "operator <payload>",
	Short: "Confirm the operator for the next test session",
	Long: `Confirm the operator from a scanned badge payload.

The payload format is EMP;employeeId;employeeName;station. A scan that omits
the station falls back to the 'station' config key. Manpower (crew size) is
not part of the scan and must be supplied with --manpower before the operator
can be confirmed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return operatorRun(args[0])
	},
}

func init() {
	operatorCmd.Flags().StringVarP(&operatorManpower, "manpower", "m", "", "Crew size for this test (required)")
	rootCmd.AddCommand(operatorCmd)
}

// applyStationDefault fills an omitted station field from the configured
// default. A scan that names its station always wins.
func applyStationDefault(payload, station string) string {
	if station == "" {
		return payload
	}
	parts := strings.Split(payload, ";")
	switch {
	case len(parts) == 3:
		parts = append(parts, station)
	case len(parts) == 4 && strings.TrimSpace(parts[3]) == "":
		parts[3] = station
	default:
		return payload
	}
	return strings.Join(parts, ";")
}

func operatorRun(payload string) error {
	payload = applyStationDefault(payload, viper.GetString("station"))

	op, err := identity.ParseOperator(payload)
	if err != nil {
		return err
	}

	manpower, err := identity.ParseManpower(operatorManpower)
	if err != nil {
		return err
	}
	if manpower == 0 {
		return fmt.Errorf("enter manpower before confirming the operator (--manpower)")
	}

	c, err := getCoordinator()
	if err != nil {
		return err
	}
	if !c.CanConfirmOperator() {
		return fmt.Errorf("an operator is already confirmed; run 'pneumatic reset' to start over")
	}

	if err := c.ConfirmOperator(op, manpower); err != nil {
		return err
	}

	ui.Success("Operator %s (%s) confirmed at %s, manpower %d", op.EmployeeName, op.EmployeeID, op.Station, manpower)
	ui.Info("Next: confirm the vessel with 'pneumatic vessel <payload>'")
	return nil
}
