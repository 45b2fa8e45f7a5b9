package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/partchat/internal/assistant"
	"github.com/raphaelgruber/partchat/internal/render"
)

var (
	askStats        bool
	askNoValidation bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the reply",
	Long: `Ask a single question in a fresh session and print the reply.

The session is deleted afterwards. Replies that list parts are printed as
cards; everything else as text.

Examples:
  partchat ask "How do I replace the ice maker on a WRS325SDHZ?"
  partchat ask "Is PS11752778 in stock?" --stats`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askStats, "stats", false, "print gateway timing stats after the reply")
	askCmd.Flags().BoolVar(&askNoValidation, "no-validation", false, "ask the service to skip reply validation")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a := newAssistant(cfg.EnableValidation && !askNoValidation)
	defer a.Close(ctx)

	err := ask(ctx, a, newRenderer(), args[0], os.Stdout)
	if askStats {
		fmt.Println()
		fmt.Println(render.Stats(render.DefaultTheme, gatewayMetric.Snapshot()))
	}
	return err
}

// ask runs one turn and prints the assistant's reply, or the error notice
// recorded in its place.
func ask(ctx context.Context, a *assistant.Assistant, r *render.Renderer, question string, out io.Writer) error {
	if err := a.Start(ctx); err != nil {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: %s\n", a.Store().Banner())
	}

	sendErr := a.Send(ctx, question)

	msgs := a.Store().Messages()
	if n := len(msgs); n > 0 && msgs[n-1].IsAssistant() {
		fmt.Fprintln(out, r.Message(msgs[n-1]))
	}
	if sendErr != nil {
		return fmt.Errorf("ask: %w", sendErr)
	}
	return nil
}
