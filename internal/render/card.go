package render

import (
	"strings"

	"github.com/raphaelgruber/partchat/internal/parser"
)

// inStockMarker selects the success tone for the availability badge.
const inStockMarker = "In Stock"

// FixedBadges are shown on every part card.
var FixedBadges = []Badge{
	{Text: "Genuine OEM", Tone: ToneNeutral},
	{Text: "Fast Shipping", Tone: ToneNeutral},
}

// Tone selects how a badge is styled.
type Tone int

const (
	// ToneNeutral is used for the fixed badges and the brand chip.
	ToneNeutral Tone = iota
	// ToneSuccess marks parts that are in stock.
	ToneSuccess
	// ToneWarning marks any other availability text.
	ToneWarning
)

func (t Tone) String() string {
	switch t {
	case ToneSuccess:
		return "success"
	case ToneWarning:
		return "warning"
	default:
		return "neutral"
	}
}

// Badge is a short label with a tone.
type Badge struct {
	Text string `json:"text"`
	Tone Tone   `json:"tone"`
}

// Link is a labelled URL.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Card is the presentational record for one part. It holds only values
// already derived by the parser; building it does no parsing of its own.
type Card struct {
	Title        string  `json:"title"`
	PartNumber   string  `json:"part_number"`
	Badges       []Badge `json:"badges"`
	Price        string  `json:"price,omitempty"`
	Availability *Badge  `json:"availability,omitempty"`
	Brand        string  `json:"brand,omitempty"`
	Action       *Link   `json:"action,omitempty"`
	Video        *Link   `json:"video,omitempty"`
}

// NewCard maps an entity and its derived fields to a Card.
func NewCard(e parser.Entity) Card {
	f := e.Fields()
	c := Card{
		Title:      e.Name,
		PartNumber: e.PartNumber,
		Badges:     append([]Badge(nil), FixedBadges...),
		Price:      f.Price,
		Brand:      f.Brand,
	}
	if f.Availability != "" {
		tone := ToneWarning
		if strings.Contains(f.Availability, inStockMarker) {
			tone = ToneSuccess
		}
		c.Availability = &Badge{Text: f.Availability, Tone: tone}
	}
	if f.ProductURL != "" {
		c.Action = &Link{Label: "View Part", URL: f.ProductURL}
	}
	if f.HasVideo {
		c.Video = &Link{Label: "Installation Video", URL: f.VideoURL}
	}
	return c
}

// Render draws the card as a bordered box. A width of zero or less lets the
// box size itself to its content.
func (c Card) Render(theme Theme, width int) string {
	var lines []string

	title := theme.TitleStyle().Render(c.Title)
	if c.PartNumber != "" {
		title += " " + theme.HintStyle().Render("#"+c.PartNumber)
	}
	lines = append(lines, title)

	if len(c.Badges) > 0 {
		badges := make([]string, len(c.Badges))
		for i, b := range c.Badges {
			badges[i] = theme.toneStyle(b.Tone).Render("[" + b.Text + "]")
		}
		lines = append(lines, strings.Join(badges, " "))
	}

	var meta []string
	if c.Price != "" {
		meta = append(meta, theme.priceStyle().Render(c.Price))
	}
	if c.Brand != "" {
		meta = append(meta, theme.toneStyle(ToneNeutral).Render("<"+c.Brand+">"))
	}
	if c.Availability != nil {
		meta = append(meta, theme.toneStyle(c.Availability.Tone).Render("● "+c.Availability.Text))
	}
	if len(meta) > 0 {
		lines = append(lines, strings.Join(meta, "  "))
	}

	for _, l := range []*Link{c.Action, c.Video} {
		if l != nil {
			lines = append(lines, l.Label+": "+theme.HintStyle().Render(l.URL))
		}
	}

	return theme.cardStyle(width).Render(strings.Join(lines, "\n"))
}
