package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/partchat/internal/parser"
)

var (
	parseJSON        bool
	parsePartNumbers bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Render saved assistant text without contacting the service",
	Long: `Run content gating, the reply parser and the card renderer on saved
assistant text. Reads stdin when no file or "-" is given.

Examples:
  partchat parse reply.txt
  pbpaste | partchat parse --json
  partchat parse --part-numbers reply.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print parsed entities as JSON")
	parseCmd.Flags().BoolVar(&parsePartNumbers, "part-numbers", false, "print only the part numbers, one per line")
	parseCmd.MarkFlagsMutuallyExclusive("json", "part-numbers")
}

// parseOutput is the --json document.
type parseOutput struct {
	Gated    bool           `json:"gated"`
	Intro    string         `json:"intro,omitempty"`
	Entities []parsedEntity `json:"entities"`
}

type parsedEntity struct {
	parser.Entity
	Fields parser.Fields `json:"fields"`
}

func runParse(cmd *cobra.Command, args []string) error {
	in := io.Reader(os.Stdin)
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	r := newRenderer()
	switch {
	case parseJSON:
		return writeParseJSON(os.Stdout, r.Gate, string(data))
	case parsePartNumbers:
		printPartNumbers(os.Stdout, r.Gate, string(data))
		return nil
	}
	fmt.Println(r.Text(r.Reply(string(data))))
	return nil
}

func writeParseJSON(w io.Writer, gate parser.Gate, text string) error {
	out := parseOutput{Gated: gate.Allows(text), Entities: []parsedEntity{}}
	if out.Gated {
		res := parser.Parse(text)
		out.Intro = res.Intro
		for _, e := range res.Entities {
			out.Entities = append(out.Entities, parsedEntity{Entity: e, Fields: e.Fields()})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	return nil
}

// printPartNumbers writes the identifier of every entity in a gated reply.
func printPartNumbers(w io.Writer, gate parser.Gate, text string) {
	if !gate.Allows(text) {
		return
	}
	for e := range parser.Entities(text) {
		fmt.Fprintln(w, e.PartNumber)
	}
}
