package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/partchat/internal/client"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the assistant service and its databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := apiClient.Health(context.Background())
		if err != nil {
			color.Red("UNREACHABLE (%v)", err)
			return fmt.Errorf("health check: %w", err)
		}
		printHealth(os.Stdout, apiClient.BaseURL(), h)
		if !h.Healthy() {
			return fmt.Errorf("service reports status %q", h.Status)
		}
		return nil
	},
}

func printHealth(w io.Writer, baseURL string, h *client.HealthResponse) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	cyan.Fprint(w, "  Service:  ")
	fmt.Fprintln(w, baseURL)

	cyan.Fprint(w, "  Status:   ")
	if h.Healthy() {
		green.Fprintln(w, h.Status)
	} else {
		red.Fprintln(w, h.Status)
	}

	if h.Version != "" {
		cyan.Fprint(w, "  Version:  ")
		fmt.Fprintln(w, h.Version)
	}

	names := make([]string, 0, len(h.Database))
	for name := range h.Database {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		cyan.Fprintf(w, "  %-9s ", name+":")
		if h.Database[name] {
			green.Fprintln(w, "ok")
		} else {
			red.Fprintln(w, "down")
		}
	}
}
