// Package ranking orders launcher catalog items for a typed query.
//
// A query is matched against the words of each item's name ("segments"),
// allowing the query to hop from one word to the start of a later one, so
// "gchr" finds "Google Chrome" and "vsc" finds "Visual Studio Code". Items the
// user keeps picking for the same query are promoted ahead of fuzzy matches by
// a small saturating counter, and an empty query lists items by how recently
// they were selected.
//
// The package is synchronous and does no I/O. A Context is not safe for
// concurrent use: callers serialize RecordSelection against FilterAndSort.
package ranking

import (
	"strings"
	"unicode"
)

// Segment splits a display name into lowercase word fragments. The name is
// split on runs of whitespace and hyphens, then each word is split before
// every ASCII capital, so "OneDrive" yields [one drive] while "ÉcoleÉté"
// stays whole.
func Segment(name string) []string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
	segments := make([]string, 0, len(words))
	for _, word := range words {
		start := 0
		for i, r := range word {
			if i > start && r >= 'A' && r <= 'Z' {
				segments = append(segments, strings.ToLower(word[start:i]))
				start = i
			}
		}
		segments = append(segments, strings.ToLower(word[start:]))
	}
	return segments
}

// Entry is the searchable view of one catalog item. Entries are rebuilt on
// every evaluation and never stored.
type Entry struct {
	ID         string
	Name       string
	Segments   []string
	Normalized string

	runes   [][]rune
	sortKey string
	pos     int
}

// NewEntry derives the searchable view of an item.
func NewEntry(id, name string) Entry {
	segments := Segment(name)
	runes := make([][]rune, len(segments))
	for i, s := range segments {
		runes[i] = []rune(s)
	}
	return Entry{
		ID:         id,
		Name:       name,
		Segments:   segments,
		Normalized: strings.Join(segments, ""),
		runes:      runes,
		sortKey:    strings.ToLower(name),
	}
}
