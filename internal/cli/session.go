package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/partchat/internal/client"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions on the assistant service",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session and print its id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := apiClient.CreateSession(context.Background())
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		fmt.Println(resp.SessionID)
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.DeleteSession(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		color.Green("Deleted session %s", args[0])
		return nil
	},
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the conversation history the service holds for a session",
	Long: `Print the conversation history the service holds for a session.

Sessions expire on the service; an expired or unknown id is reported as not found.

Examples:
  partchat session history 3f0c2a9e-1b7d-4c55-9a0e-6a2f7d1c8b44`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionHistory,
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionHistoryCmd)
}

func runSessionHistory(cmd *cobra.Command, args []string) error {
	history, err := apiClient.History(context.Background(), args[0])
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("session %s not found or expired", args[0])
	}
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}
	printHistory(os.Stdout, history)
	return nil
}

func printHistory(w io.Writer, history []client.HistoryEntry) {
	if len(history) == 0 {
		fmt.Fprintln(w, "No messages in this session.")
		return
	}

	r := newRenderer()
	dim := color.New(color.Faint)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	for i, h := range history {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if !h.Timestamp.IsZero() {
			dim.Fprintln(w, h.Timestamp.Local().Format(time.DateTime))
		}
		cyan.Fprint(w, "You: ")
		fmt.Fprintln(w, h.User)
		green.Fprintln(w, "Assistant:")
		fmt.Fprintln(w, r.Text(r.Reply(h.Agent)))
	}
}
