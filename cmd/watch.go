package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/timer"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the live stopwatch for the running test",
	Long: `Render the running test's stopwatch until interrupted.

The display is derived from the recorded start instant and the current clock
on every refresh, so a suspended or throttled process shows the correct time
the moment it renders again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watchRun(cmd *cobra.Command) error {
	c, err := getCoordinator()
	if err != nil {
		return err
	}
	if !c.State().Running {
		return fmt.Errorf("no test is running")
	}

	st := c.State()
	ui.Info("Testing %s (segment %s)", st.Vessel.Serial, st.ActiveSegmentID)
	ui.Info("Operator %s, manpower %d. Ctrl-C to leave (the test keeps running).",
		st.Operator.EmployeeName, st.Operator.Manpower)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sw := c.Stopwatch()
	sw.Watch(func(sec int) {
		fmt.Printf("\r%s", timer.FormatHHMMSS(sec))
	})

	<-ctx.Done()
	sw.Halt()
	fmt.Println()
	return nil
}
