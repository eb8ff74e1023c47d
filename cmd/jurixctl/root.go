package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"jurix/dashboard/client"
)

var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	MutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

var rootCmd = &cobra.Command{
	Use:   "jurixctl",
	Short: "jurixctl inspects and operates a running jurix listener",
	Long: `jurixctl talks to the jurix listener's HTTP API. It reads the dashboard
update feed, looks up generated knowledge-base articles, requests generation
for an issue and clears stale generation claims.

The listener address is taken from --url, then JURIX_URL.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("url", client.GetEnvOrDefault("JURIX_URL", client.DefaultBaseURL), "listener base URL")

	rootCmd.AddCommand(updatesCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(articleCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(watchCmd)
}

// newClient builds an API client from the --url flag
func newClient(cmd *cobra.Command) (*client.Client, error) {
	url, err := cmd.Flags().GetString("url")
	if err != nil {
		return nil, err
	}
	return client.NewClient(url), nil
}
