package render

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/partchat/internal/models"
	"github.com/raphaelgruber/partchat/internal/parser"
)

// Reply is the presentational form of one message's text.
type Reply struct {
	// Prose is free text: the whole message when it holds no parts, else the
	// text before the first part.
	Prose string `json:"prose,omitempty"`
	Cards []Card `json:"cards,omitempty"`
}

// Structured reports whether any part cards were recovered.
func (r Reply) Structured() bool { return len(r.Cards) > 0 }

// Renderer decides how message text is shown. Text that fails the content
// gate is never parsed; text that passes but yields no parts falls back to
// the raw text.
type Renderer struct {
	Gate  parser.Gate
	Theme Theme
	Width int
}

// NewRenderer creates a renderer gated on the given retailer domains.
func NewRenderer(domains []string) *Renderer {
	return &Renderer{Gate: parser.NewGate(domains), Theme: DefaultTheme}
}

// Reply builds the presentational form of an assistant reply.
func (r *Renderer) Reply(text string) Reply {
	if !r.Gate.Allows(text) {
		return Reply{Prose: text}
	}
	res := parser.Parse(text)
	if len(res.Entities) == 0 {
		return Reply{Prose: text}
	}
	cards := make([]Card, len(res.Entities))
	for i, e := range res.Entities {
		cards[i] = NewCard(e)
	}
	return Reply{Prose: strings.TrimRight(res.Intro, "\n"), Cards: cards}
}

// Text renders a reply to terminal text.
func (r *Renderer) Text(reply Reply) string {
	var parts []string
	if reply.Prose != "" {
		parts = append(parts, Prose(r.Theme, reply.Prose))
	}
	for _, c := range reply.Cards {
		parts = append(parts, c.Render(r.Theme, r.cardWidth()))
	}
	return strings.Join(parts, "\n")
}

// Message renders one log entry with its speaker label. User text is shown
// as typed; assistant text goes through Reply.
func (r *Renderer) Message(m models.Message) string {
	if m.IsUser() {
		label := r.Theme.TitleStyle().Render("You")
		return label + "\n" + m.Content()
	}

	label := r.Theme.SuccessStyle().Render("Assistant")
	if score, ok := m.QualityScore(); ok {
		label += " " + r.Theme.HintStyle().Render(fmt.Sprintf("(quality %d/100)", score))
	}
	if m.Synthetic() {
		return label + "\n" + Prose(r.Theme, m.Content())
	}
	return label + "\n" + r.Text(r.Reply(m.Content()))
}

// Messages renders the whole log, one blank line between entries.
func (r *Renderer) Messages(msgs []models.Message) string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = r.Message(m)
	}
	return strings.Join(out, "\n\n")
}

func (r *Renderer) cardWidth() int {
	// The border sits outside the styled width.
	if r.Width <= 2 {
		return 0
	}
	return r.Width - 2
}
