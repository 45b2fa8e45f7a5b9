// Package parser recovers structured part listings from the free-text replies
// of the assistant service.
//
// Replies are scanned line by line by a two-state machine:
//
//	state            line                              action
//	---------------  --------------------------------  ----------------------------------
//	any              empty after trim                  skip
//	any              title (next kept line has "$")    flush open entity, open new entity
//	collectingIntro  anything else                     append to leading text
//	entityOpen       detail marker present             append to open entity's details
//	entityOpen       anything else                     drop
//
// A title is "<name> (<identifier>)" on its own line. Detail markers are "$",
// "Product Page:", "Installation:" and "https://". Once the first title is
// seen the machine never returns to collectingIntro, so narrative text after
// the first entity is dropped rather than treated as leading text.
package parser

import (
	"iter"
	"regexp"
	"strings"
)

var titleRegex = regexp.MustCompile(`^(.+?)\s*\(([^()]+)\)\s*$`)

// detailMarkers are the substrings that keep a line attached to the open entity.
var detailMarkers = []string{"$", "Product Page:", "Installation:", "https://"}

type scanState int

const (
	stateCollectingIntro scanState = iota
	stateEntityOpen
)

// Result is a fully materialized parse of one reply.
type Result struct {
	// Intro is the text preceding the first entity, one line plus newline
	// per retained line.
	Intro    string
	Entities []Entity
}

// Parse scans text and returns the leading text and every entity in source order.
func Parse(text string) Result {
	var intro strings.Builder
	var entities []Entity
	scan(text, &intro, func(e Entity) bool {
		entities = append(entities, e)
		return true
	})
	return Result{Intro: intro.String(), Entities: entities}
}

// Entities returns a lazy sequence over the entities in text. Scanning stops
// as soon as the consumer stops ranging.
func Entities(text string) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		scan(text, nil, yield)
	}
}

// scan runs the state machine. intro may be nil when the caller only wants entities.
func scan(text string, intro *strings.Builder, yield func(Entity) bool) {
	lines := keptLines(text)
	state := stateCollectingIntro
	var open *Entity

	for i, line := range lines {
		var next string
		if i+1 < len(lines) {
			next = lines[i+1]
		}

		if name, id, ok := matchTitle(line, next); ok {
			if open != nil && !yield(*open) {
				return
			}
			open = &Entity{Name: name, PartNumber: id}
			state = stateEntityOpen
			continue
		}

		switch state {
		case stateCollectingIntro:
			if intro != nil {
				intro.WriteString(line)
				intro.WriteString("\n")
			}
		case stateEntityOpen:
			if isDetailLine(line) {
				open.Details = append(open.Details, line)
			}
		}
	}

	if open != nil {
		yield(*open)
	}
}

// keptLines splits text on newlines, trims each line and drops empty ones.
func keptLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// matchTitle reports whether line is a title line given the following kept line.
func matchTitle(line, next string) (name, id string, ok bool) {
	if !strings.Contains(next, "$") {
		return "", "", false
	}
	m := titleRegex.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	name = strings.TrimSpace(m[1])
	id = strings.TrimSpace(m[2])
	if name == "" || id == "" {
		return "", "", false
	}
	return name, id, true
}

func isDetailLine(line string) bool {
	for _, marker := range detailMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}
