package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"jurix/dashboard/tui"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Clear generation claims older than a maximum age",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxAge, err := cmd.Flags().GetDuration("max-age")
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		removed, err := c.Sweep(cmd.Context(), maxAge)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("removed %d stale claims", removed)))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch PROJECT",
	Short: "Open a live dashboard of a project's issue updates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		program := tea.NewProgram(tui.NewModel(c, args[0], interval))

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			<-sigChan
			program.Quit()
		}()

		_, err = program.Run()
		return err
	},
}

func init() {
	sweepCmd.Flags().Duration("max-age", 0, "claim age to clear (default: the listener's claim TTL)")
	watchCmd.Flags().Duration("interval", 0, "poll interval (default 2s)")
}
