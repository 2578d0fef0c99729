// Package geo detects country and sub-national references in report
// text. Coverage focuses on the Sudan crisis region and its
// neighbours; the tables are small on purpose.
package geo

import (
	"sort"
	"strings"
)

// Context is the geographic footprint detected in one document.
type Context struct {
	PrimaryCountry string    `json:"primary_country,omitempty"`
	Countries      []Mention `json:"countries,omitempty"`
	Districts      []string  `json:"districts,omitempty"`
	CrisisTerms    []string  `json:"crisis_terms,omitempty"`
}

// Mention is one detected country with its occurrence count.
type Mention struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

type countryPattern struct {
	name     string
	patterns []string // lowercased, boundary-matched
	exclude  []string // longer names the patterns must not sit inside
}

var countryPatterns = []countryPattern{
	{
		name:     "Sudan",
		patterns: []string{"sudan", "sudanese", "khartoum"},
		exclude:  []string{"south sudan", "south sudanese", "southern sudan"},
	},
	{
		name:     "South Sudan",
		patterns: []string{"south sudan", "south sudanese", "juba"},
	},
	{
		name:     "Chad",
		patterns: []string{"chad", "chadian", "n'djamena", "ndjamena"},
	},
	{
		name:     "Egypt",
		patterns: []string{"egypt", "egyptian", "cairo"},
	},
	{
		name:     "Ethiopia",
		patterns: []string{"ethiopia", "ethiopian", "addis ababa"},
	},
	{
		name:     "Eritrea",
		patterns: []string{"eritrea", "eritrean", "asmara"},
	},
	{
		name:     "Libya",
		patterns: []string{"libya", "libyan", "tripoli"},
	},
	{
		name:     "Central African Republic",
		patterns: []string{"central african republic", "bangui"},
	},
	{
		name:     "Kenya",
		patterns: []string{"kenya", "kenyan", "nairobi"},
	},
	{
		name:     "Uganda",
		patterns: []string{"uganda", "ugandan", "kampala"},
	},
}

// Sudanese states and hotspots plus South Sudanese states, so cross-
// border documents resolve both sides.
var districtPatterns = map[string]string{
	"khartoum state":  "Khartoum",
	"north darfur":    "North Darfur",
	"south darfur":    "South Darfur",
	"east darfur":     "East Darfur",
	"west darfur":     "West Darfur",
	"central darfur":  "Central Darfur",
	"el fasher":       "North Darfur",
	"al fashir":       "North Darfur",
	"nyala":           "South Darfur",
	"el geneina":      "West Darfur",
	"zalingei":        "Central Darfur",
	"blue nile":       "Blue Nile",
	"white nile":      "White Nile",
	"river nile":      "River Nile",
	"northern state":  "Northern",
	"red sea state":   "Red Sea",
	"port sudan":      "Red Sea",
	"kassala":         "Kassala",
	"gedaref":         "Gedaref",
	"al gezira":       "Gezira",
	"gezira":          "Gezira",
	"wad madani":      "Gezira",
	"sennar":          "Sennar",
	"north kordofan":  "North Kordofan",
	"south kordofan":  "South Kordofan",
	"west kordofan":   "West Kordofan",
	"el obeid":        "North Kordofan",
	"kadugli":         "South Kordofan",
	"abyei":           "Abyei",
	"upper nile":      "Upper Nile",
	"renk":            "Upper Nile",
	"malakal":         "Upper Nile",
	"unity state":     "Unity",
	"bentiu":          "Unity",
	"northern bahr el ghazal": "Northern Bahr el Ghazal",
}

var crisisTerms = []string{
	"displacement", "displaced", "idp", "idps", "refugee", "refugees",
	"famine", "food insecurity", "malnutrition", "cholera", "outbreak",
	"conflict", "fighting", "ceasefire", "humanitarian access",
	"protection", "gender-based violence", "cross-border",
}

// Extract scans text for country, district and crisis-term mentions.
func Extract(text string) Context {
	lower := strings.ToLower(text)
	var ctx Context

	for _, cp := range countryPatterns {
		count := 0
		for _, p := range cp.patterns {
			count += countWordOccurrences(lower, p, cp.exclude)
		}
		if count > 0 {
			ctx.Countries = append(ctx.Countries, Mention{Country: cp.name, Count: count})
		}
	}
	sort.SliceStable(ctx.Countries, func(i, j int) bool {
		return ctx.Countries[i].Count > ctx.Countries[j].Count
	})
	if len(ctx.Countries) > 0 {
		ctx.PrimaryCountry = ctx.Countries[0].Country
	}

	seen := map[string]bool{}
	for pattern, name := range districtPatterns {
		if seen[name] {
			continue
		}
		if countWordOccurrences(lower, pattern, nil) > 0 {
			ctx.Districts = append(ctx.Districts, name)
			seen[name] = true
		}
	}
	sort.Strings(ctx.Districts)

	for _, term := range crisisTerms {
		if countWordOccurrences(lower, term, nil) > 0 {
			ctx.CrisisTerms = append(ctx.CrisisTerms, term)
		}
	}

	return ctx
}

// countWordOccurrences counts boundary-anchored occurrences of needle,
// skipping any that fall inside one of the exclude phrases.
func countWordOccurrences(lower, needle string, exclude []string) int {
	count := 0
	for from := 0; ; {
		i := strings.Index(lower[from:], needle)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(needle)
		from = start + 1

		if !isBoundary(lower, start-1) || !isBoundary(lower, end) {
			continue
		}
		if insideAny(lower, start, end, exclude) {
			continue
		}
		count++
	}
	return count
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z')
}

func insideAny(lower string, start, end int, exclude []string) bool {
	for _, ex := range exclude {
		for from := 0; ; {
			i := strings.Index(lower[from:], ex)
			if i < 0 {
				break
			}
			es := from + i
			if start >= es && end <= es+len(ex) {
				return true
			}
			from = es + 1
		}
	}
	return false
}
