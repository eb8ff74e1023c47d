package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jurix/config"
	"jurix/types"
)

var updatesCmd = &cobra.Command{
	Use:   "updates PROJECT",
	Short: "List recent issue updates for a project",
	Long: `List the issue updates recorded for a project after a point in time.

Example:
  jurixctl updates ABC --since 10m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := cmd.Flags().GetDuration("since")
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		since := time.Now().Add(-window).UnixMilli()
		u, err := c.UpdatesSince(cmd.Context(), args[0], since)
		if err != nil {
			return fmt.Errorf("failed to fetch updates: %w", err)
		}

		out := cmd.OutOrStdout()
		if !u.HasUpdates {
			fmt.Fprintln(out, MutedStyle.Render(fmt.Sprintf("no updates for %s in the last %s", args[0], window)))
			return nil
		}
		fmt.Fprintln(out, HeaderStyle.Render(fmt.Sprintf("%d updates for %s", u.UpdateCount, args[0])))
		printUpdates(cmd, u.Updates)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary PROJECT",
	Short: "Show the cumulative update summary for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		s, err := c.Summary(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch summary: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, HeaderStyle.Render("Project "+s.ProjectKey))
		fmt.Fprintf(out, "updates: %d\n", s.UpdateCount)
		if s.LastUpdate > 0 {
			fmt.Fprintf(out, "last update: %s\n", time.UnixMilli(s.LastUpdate).Format(time.RFC3339))
		}
		printUpdates(cmd, s.RecentUpdates)
		return nil
	},
}

func init() {
	updatesCmd.Flags().Duration("since", config.DefaultUpdatesWindow, "how far back to look")
}

func printUpdates(cmd *cobra.Command, updates []types.UpdateEvent) {
	out := cmd.OutOrStdout()
	for _, u := range updates {
		fmt.Fprintf(out, "%s  %-12s %-12s %s\n",
			time.UnixMilli(u.Timestamp).Format("2006-01-02 15:04:05"), u.IssueKey, u.EventType, u.Status)
	}
}
