// Package cloze scans field text for {{cN::...}} deletion markers and
// synthesizes new ones with non-colliding group indices.
package cloze

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// markerRe recognizes a well-formed marker: literal "{{c", one or more
	// digits, "::", a non-greedy payload (dotall), then "}}". Anything else
	// between double braces is plain text.
	markerRe = regexp.MustCompile(`(?s)\{\{c(\d+)::(.*?)\}\}`)

	// openRe matches a marker-opening sequence. Used after stripping
	// recognized markers to detect unterminated openings.
	openRe = regexp.MustCompile(`\{\{c\d+::`)
)

// Marker is one recognized cloze marker within a field value.
type Marker struct {
	Index int    // group index N
	Start int    // byte offset of "{{"
	End   int    // byte offset just past "}}"
	Text  string // payload between :: and }}
}

// Span is a half-open byte range [Start, End) of plain text outside any marker.
type Span struct {
	Start int
	End   int
}

// Result holds the scan of a single field value.
type Result struct {
	Markers  []Marker
	MaxIndex int // highest group index present, 0 if none
	Plain    []Span
}

// Scan walks text left to right and records every recognized marker plus the
// plain-text spans between them. Marker-like text that does not match the
// canonical form is treated as plain text.
func Scan(text string) Result {
	var res Result
	locs := markerRe.FindAllStringSubmatchIndex(text, -1)
	prev := 0
	for _, m := range locs {
		idx, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || idx <= 0 {
			continue
		}
		if m[0] > prev {
			res.Plain = append(res.Plain, Span{Start: prev, End: m[0]})
		}
		res.Markers = append(res.Markers, Marker{
			Index: idx,
			Start: m[0],
			End:   m[1],
			Text:  text[m[4]:m[5]],
		})
		if idx > res.MaxIndex {
			res.MaxIndex = idx
		}
		prev = m[1]
	}
	if prev < len(text) {
		res.Plain = append(res.Plain, Span{Start: prev, End: len(text)})
	}
	return res
}

// MaxIndex returns the highest group index found across all given field
// values, 0 when none carry a marker. Synthesized indices must start strictly
// above this so they never collide with anything already in the note.
func MaxIndex(fields ...string) int {
	max := 0
	for _, f := range fields {
		if r := Scan(f); r.MaxIndex > max {
			max = r.MaxIndex
		}
	}
	return max
}

// Malformed reports whether text contains a marker-opening sequence that is
// not part of a recognized marker (e.g. an unterminated "{{c3::"). Such
// fields are skipped rather than risking invalid markup.
func Malformed(text string) bool {
	stripped := markerRe.ReplaceAllString(text, "")
	return openRe.MatchString(stripped)
}

// Wrap wraps the entire field value as a single cloze unit with the given
// group index. It returns the rewritten value and whether an index was
// consumed. Fields that are blank, already carry a marker, contain a
// malformed opening, or contain a stray "}}" are returned unchanged: a
// stray terminator inside the payload would end the synthesized marker
// early and leak the remainder as plain text.
//
// The already-marked case keeps authored fields byte-identical: a value the
// user (or a previous conversion) marked up is never wrapped again.
func Wrap(text string, index int) (string, bool, error) {
	if strings.TrimSpace(text) == "" {
		return text, false, nil
	}
	if Malformed(text) {
		return text, false, fmt.Errorf("cloze: unterminated marker opening in field")
	}
	if r := Scan(text); len(r.Markers) > 0 {
		return text, false, nil
	}
	if strings.Contains(text, "}}") {
		return text, false, fmt.Errorf("cloze: stray marker terminator in field")
	}
	return fmt.Sprintf("{{c%d::%s}}", index, text), true, nil
}
