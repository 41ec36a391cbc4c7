package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/stats"
)

func newStatsCmd() *cobra.Command {
	var owner int64
	var rawPeriod string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-activity totals for day, week or month",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := stats.ParsePeriod(rawPeriod)
			if err != nil {
				return err
			}

			a, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := stats.ForPeriod(cmd.Context(), a.Service, owner, period, a.Engine.Today())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s to %s)\n", report.Label,
				report.Start.Format(domain.DayLayout), report.End.Format(domain.DayLayout))
			if len(report.Totals) == 0 {
				fmt.Fprintln(out, "no data")
			}
			for _, total := range report.Totals {
				value := domain.MatchType(total.ActivityType,
					func() string { return fmt.Sprintf("%d days", total.TotalTrueDays) },
					func() string { return fmt.Sprintf("%d min", total.TotalMinutes) },
				)
				fmt.Fprintf(out, "%s\t%s\n", total.ActivityName, value)
			}
			return nil
		},
	}

	ownerFlag(cmd, &owner)
	cmd.Flags().StringVar(&rawPeriod, "period", "day", "Period (day|week|month)")
	return cmd
}
