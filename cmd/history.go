package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/output"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/timer"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <serial>",
	Short: "Show a vessel's recorded segments",
	Long:  `List the TEST and LEAK segments recorded for a vessel serial, most recent first.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyRun(cmd, args[0])
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum segments to show (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func historyRun(cmd *cobra.Command, serial string) error {
	led, err := getLedger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if h, err := led.Header(ctx, serial); err == nil {
		ui.Info("%s - %s (%s)", output.Cyan(h.Serial), h.ProjectName, h.VesselType)
	}

	segs, err := led.History(ctx, serial, historyLimit)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		ui.Info("No segments recorded for %s.", serial)
		return nil
	}

	table := ui.Table([]string{"Type", "Start", "End", "Duration", "Status", "Reason", "Remark"})
	for _, seg := range segs {
		end := "-"
		duration := "-"
		if seg.EndTime != nil {
			end = seg.EndTime.Local().Format("2006-01-02 15:04:05")
		}
		if seg.DurationSec != nil {
			duration = timer.FormatHHMMSS(*seg.DurationSec)
		}

		table.Append([]string{
			segmentTypeCell(seg.SegmentType),
			seg.StartTime.Local().Format("2006-01-02 15:04:05"),
			end,
			duration,
			output.StatusColor(string(seg.Status)),
			seg.Reason,
			seg.Remark,
		})
	}
	table.Render()

	ui.VerboseLog("%s segments shown", strconv.Itoa(len(segs)))
	return nil
}

func segmentTypeCell(t models.SegmentType) string {
	if t == models.SegmentLeak {
		return output.Red(string(t))
	}
	return string(t)
}
