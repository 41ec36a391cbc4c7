package root

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
)

func newActivitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Manage an owner's activities",
	}
	cmd.AddCommand(newActivitiesListCmd(), newActivitiesAddCmd(), newActivitiesDeleteCmd())
	return cmd
}

func newActivitiesListCmd() *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities with today's values",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			view, err := a.Engine.LoadView(cmd.Context(), owner, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if view.Empty() {
				fmt.Fprintln(out, "no activities")
				return nil
			}
			for _, item := range view.Items {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", item.ActivityID, item.Type, item.State, item.Name)
			}
			return nil
		},
	}

	ownerFlag(cmd, &owner)
	return cmd
}

func newActivitiesAddCmd() *cobra.Command {
	var owner int64
	var rawType string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an activity",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("name is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			activityType, err := domain.ParseActivityType(rawType)
			if err != nil {
				return err
			}

			a, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			created, err := a.Service.CreateActivity(cmd.Context(), owner, strings.Join(args, " "), activityType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d %s\n", created.ID, created.Name)
			return nil
		},
	}

	ownerFlag(cmd, &owner)
	cmd.Flags().StringVarP(&rawType, "type", "t", string(domain.ActivityTypeCheckbox), "Activity type (checkbox|time)")
	return cmd
}

func newActivitiesDeleteCmd() *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an activity and all its logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("activity id: %w", err)
			}

			a, cleanup, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Service.DeleteActivity(cmd.Context(), owner, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}

	ownerFlag(cmd, &owner)
	return cmd
}
