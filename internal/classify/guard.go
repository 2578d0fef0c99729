package classify

import (
	"strings"
	"unicode"
)

// Guard describes a country whose name is a substring of another
// country's name, so plain substring matching misattributes records.
// ConflictIndicators are the longer names that must not be counted as
// mentions of the target.
type Guard struct {
	Target             string
	Aliases            []string
	ConflictIndicators []string
}

// GuardTable maps a lowercased country name to its guard.
type GuardTable map[string]Guard

// DefaultGuards returns the built-in ambiguity guards.
func DefaultGuards() GuardTable {
	return GuardTable{
		"sudan": {
			Target:  "sudan",
			Aliases: []string{"republic of the sudan", "republic of sudan"},
			ConflictIndicators: []string{
				"south sudan",
				"southern sudan",
				"republic of south sudan",
				"south sudanese",
			},
		},
		"niger": {
			Target:  "niger",
			Aliases: []string{"republic of the niger", "republic of niger"},
			ConflictIndicators: []string{
				"nigeria",
				"federal republic of nigeria",
				"nigerian",
			},
		},
		"guinea": {
			Target:  "guinea",
			Aliases: []string{"republic of guinea"},
			ConflictIndicators: []string{
				"guinea-bissau",
				"guinea bissau",
				"equatorial guinea",
				"papua new guinea",
			},
		},
	}
}

// Lookup returns the guard for a target country, if one exists.
func (t GuardTable) Lookup(target string) (Guard, bool) {
	g, ok := t[strings.ToLower(strings.TrimSpace(target))]
	return g, ok
}

// splitCountries splits a delimited country-list field into trimmed,
// lowercased entries. Both semicolons and commas act as delimiters.
func splitCountries(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ','
	})
	entries := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// entryIsTarget reports whether one country-list entry names the target
// exactly (or by a known alias). Entry comparison is whole-entry, so
// "south sudan" never matches target "sudan".
func (g Guard) entryIsTarget(entry string) bool {
	if entry == g.Target {
		return true
	}
	for _, alias := range g.Aliases {
		if entry == alias {
			return true
		}
	}
	return false
}

// listMentionsTarget reports whether a delimited country-list field
// contains the target as a standalone entry.
func (g Guard) listMentionsTarget(raw string) bool {
	for _, entry := range splitCountries(raw) {
		if g.entryIsTarget(entry) {
			return true
		}
	}
	return false
}

// listHasConflict reports whether a delimited country-list field
// contains any conflict indicator as a standalone entry or substring.
func (g Guard) listHasConflict(raw string) bool {
	return g.textHasConflict(raw)
}

// textHasConflict reports whether free text contains any conflict
// indicator, anchored at word boundaries.
func (g Guard) textHasConflict(text string) bool {
	lower := strings.ToLower(text)
	for _, ind := range g.ConflictIndicators {
		if containsWord(lower, ind) {
			return true
		}
	}
	return false
}

// textMentionsTarget reports whether free text mentions the target at a
// word boundary, excluding occurrences that are part of a conflict
// indicator (e.g. the "sudan" inside "south sudan").
func (g Guard) textMentionsTarget(text string) bool {
	lower := strings.ToLower(text)
	for _, occ := range wordOccurrences(lower, g.Target) {
		if !g.insideConflict(lower, occ, len(g.Target)) {
			return true
		}
	}
	return false
}

// insideConflict reports whether the target occurrence at [start,
// start+length) falls inside an occurrence of a conflict indicator.
func (g Guard) insideConflict(lower string, start, length int) bool {
	end := start + length
	for _, ind := range g.ConflictIndicators {
		for _, cs := range wordOccurrences(lower, ind) {
			if start >= cs && end <= cs+len(ind) {
				return true
			}
		}
	}
	return false
}

// containsWord reports whether needle occurs in haystack bounded by
// non-letter runes on both sides.
func containsWord(haystack, needle string) bool {
	return len(wordOccurrences(haystack, needle)) > 0
}

// wordOccurrences returns the byte offsets of every boundary-anchored
// occurrence of needle in haystack. Both must already be lowercased.
func wordOccurrences(haystack, needle string) []int {
	if needle == "" {
		return nil
	}
	var offsets []int
	for from := 0; ; {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			offsets = append(offsets, start)
		}
		from = start + 1
	}
	return offsets
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r)
}
