package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/export"
)

func newExportCmd() *cobra.Command {
	var owner int64
	var rawStart, rawEnd, dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one YYYY-MM-DD.md file per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := domain.ParseDay(rawStart)
			if err != nil {
				return err
			}
			end, err := domain.ParseDay(rawEnd)
			if err != nil {
				return err
			}

			a, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			artifacts, err := a.Exporter.Export(cmd.Context(), owner, start, end)
			if err != nil {
				return err
			}
			if err := export.WriteDir(dir, artifacts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", len(artifacts), dir)
			return nil
		},
	}

	ownerFlag(cmd, &owner)
	cmd.Flags().StringVar(&rawStart, "start", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&rawEnd, "end", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dir, "dir", "export", "Output directory")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
