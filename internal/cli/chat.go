package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/partchat/internal/assistant"
	"github.com/raphaelgruber/partchat/internal/render"
	"github.com/raphaelgruber/partchat/internal/tui"
)

var chatNoValidation bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat (default command)",
	Long: `Start a conversation with the parts assistant.

On a terminal this opens the chat screen. When stdin or stdout is not a
terminal, each input line is sent as one message and replies are printed
as they arrive. In both modes "/new" starts a new conversation and "/quit"
exits.

Examples:
  partchat chat
  partchat chat --server http://assistant.internal:8000
  echo "Is PS11752778 compatible with WDT780SAEM1?" | partchat chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNoValidation, "no-validation", false, "ask the service to skip reply validation")
	rootCmd.Flags().BoolVar(&chatNoValidation, "no-validation", false, "ask the service to skip reply validation")
}

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newAssistant(cfg.EnableValidation && !chatNoValidation)
	defer a.Close(context.Background())

	r := newRenderer()
	if interactive() {
		return tui.Run(ctx, a, r, gatewayMetric, logger)
	}
	return runLineChat(ctx, a, r, os.Stdin, os.Stdout)
}

// runLineChat is the non-interactive chat: one message per input line,
// replies written to out.
func runLineChat(ctx context.Context, a *assistant.Assistant, r *render.Renderer, in io.Reader, out io.Writer) error {
	p := newLogPrinter(a, r, out)

	if err := a.Start(ctx); err != nil {
		logger.Warn("continuing without a session", "error", err)
	}
	p.flush()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/new":
			if err := a.Reset(ctx); err != nil {
				logger.Warn("reset ignored", "error", err)
			}
			p.flush()
			continue
		}

		err := a.Send(ctx, line)
		p.flush()
		if err != nil && !errors.Is(err, assistant.ErrStaleResponse) {
			logger.Warn("send failed", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// logPrinter writes conversation messages that have not been printed yet,
// starting over when the log is replaced.
type logPrinter struct {
	a       *assistant.Assistant
	r       *render.Renderer
	out     io.Writer
	gen     uint64
	printed int
	banner  string
}

func newLogPrinter(a *assistant.Assistant, r *render.Renderer, out io.Writer) *logPrinter {
	return &logPrinter{a: a, r: r, out: out, gen: a.Store().Generation()}
}

func (p *logPrinter) flush() {
	store := p.a.Store()
	if gen := store.Generation(); gen != p.gen {
		p.gen, p.printed = gen, 0
	}
	msgs := store.Messages()
	for _, m := range msgs[min(p.printed, len(msgs)):] {
		fmt.Fprintln(p.out, p.r.Message(m))
		fmt.Fprintln(p.out)
	}
	p.printed = len(msgs)

	if banner := store.Banner(); banner != p.banner {
		p.banner = banner
		if banner != "" {
			fmt.Fprintln(p.out, color.RedString("! %s", banner))
		}
	}
}
