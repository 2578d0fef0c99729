package process

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const keyTermLimit = 20

// KeyTerm is a scored term from a single document. Scores are
// normalized so the strongest term is 1.0.
type KeyTerm struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

var stopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"all": true, "also": true, "an": true, "and": true, "any": true,
	"are": true, "as": true, "at": true, "be": true, "been": true,
	"being": true, "between": true, "both": true, "but": true, "by": true,
	"can": true, "could": true, "did": true, "do": true, "does": true,
	"during": true, "each": true, "for": true, "from": true, "further": true,
	"had": true, "has": true, "have": true, "he": true, "her": true,
	"here": true, "his": true, "how": true, "i": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true,
	"may": true, "more": true, "most": true, "no": true, "not": true,
	"of": true, "on": true, "only": true, "or": true, "other": true,
	"our": true, "out": true, "over": true, "per": true, "she": true,
	"should": true, "so": true, "some": true, "such": true, "than": true,
	"that": true, "the": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "those": true,
	"through": true, "to": true, "under": true, "until": true, "up": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "who": true, "will": true,
	"with": true, "would": true, "you": true, "your": true,
}

// KeyTerms extracts the top scoring unigrams and bigrams using
// sublinear term frequency weighting, the usual single-document
// degenerate case of TF-IDF.
func KeyTerms(text string, limit int) []KeyTerm {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	freq := make(map[string]int)
	for _, tok := range tokens {
		if stopwords[tok] || len(tok) < 3 {
			continue
		}
		freq[tok]++
	}
	for i := 0; i+1 < len(tokens); i++ {
		a, b := tokens[i], tokens[i+1]
		if stopwords[a] || stopwords[b] || len(a) < 3 || len(b) < 3 {
			continue
		}
		freq[a+" "+b]++
	}

	if len(freq) == 0 {
		return nil
	}

	terms := make([]KeyTerm, 0, len(freq))
	maxScore := 0.0
	for term, tf := range freq {
		score := 1 + math.Log(float64(tf))
		// bigrams are rarer and more informative
		if strings.Contains(term, " ") {
			score *= 1.5
		}
		if score > maxScore {
			maxScore = score
		}
		terms = append(terms, KeyTerm{Term: term, Score: score})
	}

	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Score != terms[j].Score {
			return terms[i].Score > terms[j].Score
		}
		return terms[i].Term < terms[j].Term
	})
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	for i := range terms {
		terms[i].Score = math.Round(terms[i].Score/maxScore*1000) / 1000
	}
	return terms
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
