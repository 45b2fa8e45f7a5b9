package parser

import "strings"

// DefaultRetailerDomains are the retailer domains whose presence marks a
// reply as worth parsing.
var DefaultRetailerDomains = []string{"partselect.com"}

// Gate is the coarse, message-level check run before the parser. Replies that
// fail it are rendered verbatim.
type Gate struct {
	RetailerDomains []string
}

// NewGate returns a gate for the given domains, falling back to
// DefaultRetailerDomains when none are given.
func NewGate(domains []string) Gate {
	if len(domains) == 0 {
		domains = DefaultRetailerDomains
	}
	return Gate{RetailerDomains: domains}
}

// Allows reports whether text may contain part listings: it must mention a
// dollar sign, a product page, or one of the retailer domains.
func (g Gate) Allows(text string) bool {
	if strings.Contains(text, "$") || strings.Contains(text, productPagePrefix) {
		return true
	}
	lower := strings.ToLower(text)
	for _, d := range g.RetailerDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(lower, d) {
			return true
		}
	}
	return false
}
