package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var articleCmd = &cobra.Command{
	Use:   "article ISSUE",
	Short: "Show the generated article and generation state for an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		status, err := c.ArticleStatus(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch generation state: %w", err)
		}
		fmt.Fprintln(out, HeaderStyle.Render(args[0]))
		line := "state: " + string(status.State)
		if status.Since > 0 {
			line += " since " + time.UnixMilli(status.Since).Format(time.RFC3339)
		}
		fmt.Fprintln(out, line)
		if status.Reason != "" {
			fmt.Fprintln(out, ErrorStyle.Render("reason: "+status.Reason))
		}

		if status.ArticleStatus == "" {
			return nil
		}
		a, err := c.Article(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch article: %w", err)
		}
		fmt.Fprintf(out, "article: %s (version %d)\n", a.Status, a.Version)
		if title := a.Title(); title != "" {
			fmt.Fprintln(out, SuccessStyle.Render(title))
		}
		if approval, ok := a.Article["approval_status"].(string); ok {
			fmt.Fprintln(out, "approval: "+approval)
		}
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate ISSUE",
	Short: "Request article generation for an issue",
	Long: `Request knowledge-base article generation for an issue regardless of its
status. The listener fetches the issue from Jira, so Jira credentials must be
configured on the listener.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		res, err := c.Generate(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to request generation: %w", err)
		}
		style := SuccessStyle
		if res.Result != "started" {
			style = MutedStyle
		}
		fmt.Fprintln(cmd.OutOrStdout(), style.Render(fmt.Sprintf("%s: %s", res.IssueKey, res.Result)))
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications USER",
	Short: "List a user's article notifications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		list, err := c.Notifications(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch notifications: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, MutedStyle.Render("no notifications"))
			return nil
		}
		for _, n := range list {
			marker := "*"
			if n.Read {
				marker = " "
			}
			fmt.Fprintf(out, "%s %s  %s  %s\n", marker,
				time.UnixMilli(n.Timestamp).Format("2006-01-02 15:04"), n.IssueKey, n.Message)
		}
		return nil
	},
}
