package parser

import (
	"regexp"
	"strings"
)

const (
	productPagePrefix = "Product Page:"
	videoPrefix       = "Installation Video:"

	// notAvailableMarker marks a video link the service could not provide.
	notAvailableMarker = "[Not Available]"
)

var priceRegex = regexp.MustCompile(`\$\d+(?:\.\d+)?`)

// Entity is a part recovered from a reply. Only the raw detail lines are
// stored; everything else is derived from them on demand.
type Entity struct {
	Name       string   `json:"name"`
	PartNumber string   `json:"part_number"`
	Details    []string `json:"details"`
}

// Fields holds every value derived from an entity's detail lines.
type Fields struct {
	Price        string `json:"price,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Availability string `json:"availability,omitempty"`
	ProductURL   string `json:"product_url,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	HasVideo     bool   `json:"has_video"`
}

// Fields derives all secondary fields in one pass over the details.
func (e Entity) Fields() Fields {
	brand, availability := e.BrandAvailability()
	return Fields{
		Price:        e.Price(),
		Brand:        brand,
		Availability: availability,
		ProductURL:   e.ProductURL(),
		VideoURL:     e.VideoURL(),
		HasVideo:     e.HasVideo(),
	}
}

// Price returns the first dollar amount on the first detail line containing "$".
func (e Entity) Price() string {
	for _, d := range e.Details {
		if strings.Contains(d, "$") {
			return priceRegex.FindString(d)
		}
	}
	return ""
}

// BrandAvailability splits the first pipe-delimited detail line,
// "Price | Brand | Availability". Lines with fewer than three fields yield nothing.
func (e Entity) BrandAvailability() (brand, availability string) {
	for _, d := range e.Details {
		if !strings.Contains(d, "|") {
			continue
		}
		parts := strings.Split(d, "|")
		if len(parts) < 3 {
			return "", ""
		}
		return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
	}
	return "", ""
}

// Brand returns the brand field of the pipe-delimited detail line.
func (e Entity) Brand() string {
	b, _ := e.BrandAvailability()
	return b
}

// Availability returns the availability field of the pipe-delimited detail line.
func (e Entity) Availability() string {
	_, a := e.BrandAvailability()
	return a
}

// ProductURL returns the link from the first "Product Page:" line.
func (e Entity) ProductURL() string {
	return e.prefixed(productPagePrefix)
}

// VideoURL returns the link from the first "Installation Video:" line.
func (e Entity) VideoURL() string {
	return e.prefixed(videoPrefix)
}

// HasVideo reports whether the entity carries a playable installation video.
func (e Entity) HasVideo() bool {
	u := e.VideoURL()
	return u != "" && !strings.Contains(u, notAvailableMarker)
}

func (e Entity) prefixed(prefix string) string {
	for _, d := range e.Details {
		if rest, ok := strings.CutPrefix(d, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
