package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/partchat/internal/metrics"
	"github.com/raphaelgruber/partchat/internal/models"
	"github.com/raphaelgruber/partchat/internal/parser"
)

const doorBinReply = "Door Bin (PS123)\n$45.00 | Whirlpool | In Stock\nProduct Page: https://x\nInstallation Video: [Not Available]"

func firstEntity(t *testing.T, text string) parser.Entity {
	t.Helper()
	res := parser.Parse(text)
	require.NotEmpty(t, res.Entities)
	return res.Entities[0]
}

func TestNewCard_DoorBin(t *testing.T) {
	c := NewCard(firstEntity(t, doorBinReply))

	assert.Equal(t, "Door Bin", c.Title)
	assert.Equal(t, "PS123", c.PartNumber)
	assert.Equal(t, FixedBadges, c.Badges)
	assert.Equal(t, "$45.00", c.Price)
	assert.Equal(t, "Whirlpool", c.Brand)
	require.NotNil(t, c.Availability)
	assert.Equal(t, Badge{Text: "In Stock", Tone: ToneSuccess}, *c.Availability)
	require.NotNil(t, c.Action)
	assert.Equal(t, "https://x", c.Action.URL)
	assert.Nil(t, c.Video, "unavailable video is not linked")
}

func TestNewCard_Gating(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		availability *Badge
		hasAction    bool
		videoURL     string
	}{
		{
			name:         "backordered part",
			text:         "Ice Maker (PS9)\n$120.50 | GE | Special Order",
			availability: &Badge{Text: "Special Order", Tone: ToneWarning},
		},
		{
			name:      "no pipe line",
			text:      "Gasket (PS7)\n$12.00\nProduct Page: https://www.partselect.com/PS7",
			hasAction: true,
		},
		{
			name:         "playable video",
			text:         "Pump (PS8)\n$60.00 | Bosch | In Stock Now\nInstallation Video: https://youtu.be/abc",
			availability: &Badge{Text: "In Stock Now", Tone: ToneSuccess},
			videoURL:     "https://youtu.be/abc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCard(firstEntity(t, tt.text))
			assert.Equal(t, tt.availability, c.Availability)
			assert.Equal(t, tt.hasAction, c.Action != nil)
			if tt.videoURL == "" {
				assert.Nil(t, c.Video)
			} else {
				require.NotNil(t, c.Video)
				assert.Equal(t, tt.videoURL, c.Video.URL)
			}
		})
	}
}

func TestCard_Render(t *testing.T) {
	out := NewCard(firstEntity(t, doorBinReply)).Render(DefaultTheme, 0)

	for _, want := range []string{"Door Bin", "#PS123", "[Genuine OEM]", "[Fast Shipping]", "$45.00", "Whirlpool", "In Stock", "View Part", "https://x"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Installation Video")
}

func TestRenderer_Reply(t *testing.T) {
	r := NewRenderer(parser.DefaultRetailerDomains)

	tests := []struct {
		name  string
		text  string
		prose string
		cards int
	}{
		{
			name:  "gated out even with a title-shaped line",
			text:  "Door Bin (PS123)\nIt is on the left side.",
			prose: "Door Bin (PS123)\nIt is on the left side.",
		},
		{
			name:  "gate passes but nothing parses",
			text:  "Most bins cost about $40.",
			prose: "Most bins cost about $40.",
		},
		{
			name:  "retailer domain passes the gate",
			text:  "See www.PartSelect.com for details.",
			prose: "See www.PartSelect.com for details.",
		},
		{
			name:  "single part",
			text:  doorBinReply,
			cards: 1,
		},
		{
			name:  "intro then parts",
			text:  "Here are two options:\n\nDoor Bin (PS123)\n$45.00\nShelf (PS456)\n$30.00 | GE | In Stock",
			prose: "Here are two options:",
			cards: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Reply(tt.text)
			assert.Equal(t, tt.prose, got.Prose)
			assert.Len(t, got.Cards, tt.cards)
			assert.Equal(t, tt.cards > 0, got.Structured())
		})
	}
}

func TestRenderer_Message(t *testing.T) {
	r := NewRenderer(nil)
	now := time.Now()

	user := r.Message(models.NewUserMessage("find a **door** bin", now))
	assert.Contains(t, user, "You")
	assert.Contains(t, user, "find a **door** bin", "user text is shown as typed")

	score := 88
	reply := r.Message(models.NewAssistantMessage(doorBinReply, &score, now))
	assert.Contains(t, reply, "Assistant")
	assert.Contains(t, reply, "quality 88/100")
	assert.Contains(t, reply, "[Genuine OEM]")

	all := r.Messages([]models.Message{
		models.NewUserMessage("first", now),
		models.NewUserMessage("second", now),
	})
	assert.Less(t, strings.Index(all, "first"), strings.Index(all, "second"))
}

func TestProse(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains []string
		excludes []string
	}{
		{
			name:     "emphasis markers removed",
			src:      "This is **important** and *subtle*.",
			contains: []string{"important", "subtle"},
			excludes: []string{"**", "*subtle*"},
		},
		{
			name:     "heading keeps its markers",
			src:      "# Installation\n\nStep *one*",
			contains: []string{"# Installation", "Step one"},
		},
		{
			name:     "bullet list",
			src:      "- unplug the fridge\n- remove the bin",
			contains: []string{"• unplug the fridge", "• remove the bin"},
		},
		{
			name:     "ordered list",
			src:      "1. open the door\n2. lift the bin",
			contains: []string{"1. open the door", "2. lift the bin"},
		},
		{
			name:     "link keeps destination",
			src:      "Visit [the part page](https://www.partselect.com/PS1).",
			contains: []string{"the part page", "(https://www.partselect.com/PS1)"},
			excludes: []string{"]("},
		},
		{
			name:     "inline html kept",
			src:      "before <b>x</b> *after*",
			contains: []string{"before <b>x</b> after"},
		},
		{
			name:     "html block kept",
			src:      "<div>\nSee the label\n</div>\n\n**done**",
			contains: []string{"<div>", "See the label", "</div>", "done"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Prose(DefaultTheme, tt.src)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, bad := range tt.excludes {
				assert.NotContains(t, out, bad)
			}
		})
	}
}

func TestProse_PlainTextVerbatim(t *testing.T) {
	for _, src := range []string{
		"Check the label <model number> inside the door.",
		"# of screws: 4",
	} {
		assert.Equal(t, src, Prose(DefaultTheme, src), src)
	}

	r := NewRenderer(nil)
	assert.Equal(t, "Check the label <model number> inside the door.",
		r.Text(r.Reply("Check the label <model number> inside the door.")))
}

func TestProse_KeepsLineStructure(t *testing.T) {
	assert.Equal(t, "first paragraph\n\nsecond paragraph", Prose(DefaultTheme, "first paragraph\n\nsecond paragraph"))
	assert.Equal(t, "line one\nline two", Prose(DefaultTheme, "line one\nline two"))
}

func TestStats(t *testing.T) {
	empty := Stats(DefaultTheme, metrics.Snapshot{})
	assert.Contains(t, empty, "no requests yet")

	c := metrics.NewCollector()
	c.RecordTiming(metrics.OpChat, 1500*time.Millisecond, false)
	c.RecordTiming(metrics.OpChat, 500*time.Millisecond, true)
	c.RecordTiming(metrics.OpCreateSession, 20*time.Millisecond, false)

	out := Stats(DefaultTheme, c.Snapshot())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "operation")
	assert.Regexp(t, `^chat\s+2\s+1\s+1000\.0\s+500\s+1500$`, lines[2])
	assert.Contains(t, lines[3], metrics.OpCreateSession)
}
