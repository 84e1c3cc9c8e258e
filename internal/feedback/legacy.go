package feedback

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Notes written before structured feedback existed carried the rating inline:
//
//	[FEEDBACK rating=4] Great session
const legacyMarker = "[FEEDBACK rating="

var legacyPattern = regexp.MustCompile(`(?s)^\s*\[FEEDBACK rating=(-?\d+)\]\s*(.*)$`)

type LegacyKind int

const (
	// LegacyNone is an ordinary note.
	LegacyNone LegacyKind = iota
	// LegacyFeedback is a well-formed legacy feedback note.
	LegacyFeedback
	// LegacyMalformed carries the marker but cannot be converted.
	LegacyMalformed
)

// LegacyNote is the parsed form of a note's text.
type LegacyNote struct {
	Kind    LegacyKind
	Rating  int
	Comment string
	// Reason explains a LegacyMalformed result.
	Reason string
}

// HasLegacyMarker reports whether text starts with the legacy feedback marker.
func HasLegacyMarker(text string) bool {
	return strings.HasPrefix(strings.TrimLeft(text, " \t\r\n"), legacyMarker)
}

// ParseLegacyNote classifies a note's text.
func ParseLegacyNote(text string) LegacyNote {
	if !HasLegacyMarker(text) {
		return LegacyNote{Kind: LegacyNone}
	}

	m := legacyPattern.FindStringSubmatch(text)
	if m == nil {
		return LegacyNote{Kind: LegacyMalformed, Reason: "unterminated or non-numeric rating marker"}
	}

	rating, err := strconv.Atoi(m[1])
	if err != nil {
		return LegacyNote{Kind: LegacyMalformed, Reason: "rating is not a number"}
	}
	if rating < MinRating || rating > MaxRating {
		return LegacyNote{Kind: LegacyMalformed, Rating: rating, Reason: "rating out of range"}
	}

	return LegacyNote{
		Kind:    LegacyFeedback,
		Rating:  rating,
		Comment: truncateRunes(strings.TrimSpace(m[2]), MaxCommentRunes),
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
