package render

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/partchat/internal/metrics"
)

// Stats renders a gateway metrics snapshot as an aligned table.
func Stats(theme Theme, snap metrics.Snapshot) string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle().Render("Gateway stats"))
	fmt.Fprintf(&b, " %s\n", theme.HintStyle().Render(fmt.Sprintf("(uptime %.0fs)", snap.UptimeSeconds)))

	if len(snap.Operations) == 0 {
		b.WriteString(theme.HintStyle().Render("no requests yet"))
		return b.String()
	}

	fmt.Fprintf(&b, "%-16s %6s %6s %9s %9s %9s\n", "operation", "calls", "errors", "avg ms", "min ms", "max ms")
	for _, op := range snap.Operations {
		fmt.Fprintf(&b, "%-16s %6d %6d %9.1f %9d %9d\n",
			op.Name, op.Count, op.Errors, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
	return strings.TrimRight(b.String(), "\n")
}
