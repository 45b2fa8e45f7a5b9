package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Prose renders markdown as styled terminal text. Emphasis, code, links and
// lists are styled. Headings keep their source line and raw HTML is written
// out as typed. Text with no markup comes back unchanged apart from trailing
// newlines.
func Prose(theme Theme, src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))
	if plain(doc) {
		return strings.TrimRight(src, "\n")
	}

	p := proseWriter{theme: theme, source: source}
	p.blocks(doc, "")
	return strings.TrimRight(p.out.String(), "\n")
}

type proseWriter struct {
	theme  Theme
	source []byte
	out    strings.Builder
}

func (p *proseWriter) blocks(parent ast.Node, indent string) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		p.block(n, indent)
	}
}

func (p *proseWriter) block(n ast.Node, indent string) {
	switch n := n.(type) {
	case *ast.Heading:
		p.line(indent, p.theme.TitleStyle().Render(p.headingLine(n)))
		p.out.WriteString("\n")
	case *ast.Paragraph:
		p.lines(indent, p.inline(n))
		p.out.WriteString("\n")
	case *ast.TextBlock:
		p.lines(indent, p.inline(n))
	case *ast.List:
		p.list(n, indent)
		p.out.WriteString("\n")
	case *ast.Blockquote:
		p.blocks(n, indent+"│ ")
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		code := lipgloss.NewStyle().Foreground(p.theme.Accent)
		lines := n.Lines()
		for i := range lines.Len() {
			seg := lines.At(i)
			p.line(indent+"  ", code.Render(strings.TrimRight(string(seg.Value(p.source)), "\n")))
		}
		p.out.WriteString("\n")
	case *ast.ThematicBreak:
		p.line(indent, p.theme.HintStyle().Render("───"))
		p.out.WriteString("\n")
	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := range lines.Len() {
			seg := lines.At(i)
			p.line(indent, strings.TrimRight(string(seg.Value(p.source)), "\n"))
		}
		if n.HasClosure() {
			p.line(indent, strings.TrimRight(string(n.ClosureLine.Value(p.source)), "\n"))
		}
		p.out.WriteString("\n")
	default:
		p.blocks(n, indent)
	}
}

func (p *proseWriter) list(l *ast.List, indent string) {
	num := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		var sub proseWriter
		sub.theme, sub.source = p.theme, p.source
		sub.blocks(item, "")

		body := strings.Split(strings.TrimRight(sub.out.String(), "\n"), "\n")
		pad := strings.Repeat(" ", lipgloss.Width(marker))
		for i, line := range body {
			if i == 0 {
				p.line(indent, marker+line)
				continue
			}
			if line == "" {
				p.out.WriteString("\n")
				continue
			}
			p.line(indent, pad+line)
		}
	}
}

// inline flattens the inline children of n into a single styled string.
// Soft line breaks are kept as newlines.
func (p *proseWriter) inline(parent ast.Node) string {
	var b strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(p.source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(n.Value)
		case *ast.CodeSpan:
			b.WriteString(lipgloss.NewStyle().Foreground(p.theme.Accent).Render(p.inline(n)))
		case *ast.Emphasis:
			s := lipgloss.NewStyle().Italic(true)
			if n.Level >= 2 {
				s = lipgloss.NewStyle().Bold(true)
			}
			b.WriteString(s.Render(p.inline(n)))
		case *ast.Link:
			label := p.inline(n)
			dest := string(n.Destination)
			b.WriteString(label)
			if dest != "" && dest != label {
				b.WriteString(" " + p.theme.HintStyle().Render("("+dest+")"))
			}
		case *ast.AutoLink:
			b.WriteString(p.theme.HintStyle().Render(string(n.URL(p.source))))
		case *ast.RawHTML:
			for i := range n.Segments.Len() {
				seg := n.Segments.At(i)
				b.Write(seg.Value(p.source))
			}
		default:
			b.WriteString(p.inline(n))
		}
	}
	return b.String()
}

// headingLine returns the source line holding the heading text, markers
// included, so "# of screws: 4" is not shortened to "of screws: 4".
func (p *proseWriter) headingLine(h *ast.Heading) string {
	lines := h.Lines()
	if lines.Len() == 0 {
		return strings.Repeat("#", h.Level)
	}
	seg := lines.At(0)
	start, stop := seg.Start, seg.Stop
	for start > 0 && p.source[start-1] != '\n' {
		start--
	}
	for stop < len(p.source) && p.source[stop] != '\n' {
		stop++
	}
	line := strings.TrimSpace(string(p.source[start:stop]))
	if strings.HasPrefix(line, "#") {
		return line
	}
	// Setext heading: the underline is on the next line.
	return p.inline(h)
}

// plain reports whether doc holds nothing but paragraphs of unmarked text.
func plain(doc ast.Node) bool {
	ok := true
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Document, *ast.Paragraph, *ast.TextBlock, *ast.Text:
			return ast.WalkContinue, nil
		}
		ok = false
		return ast.WalkStop, nil
	})
	return ok
}

func (p *proseWriter) lines(indent, s string) {
	for _, l := range strings.Split(s, "\n") {
		p.line(indent, l)
	}
}

func (p *proseWriter) line(indent, s string) {
	p.out.WriteString(indent)
	p.out.WriteString(s)
	p.out.WriteString("\n")
}
