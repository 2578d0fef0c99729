package process

import (
	"math"
	"strings"
	"unicode"

	"github.com/sahelwatch/reliefdocs/internal/geo"
)

// Metadata is the derived description of one processed document.
type Metadata struct {
	Stats       ContentStats `json:"content_statistics"`
	Readability Readability  `json:"readability"`
	KeyTerms    []KeyTerm    `json:"key_terms"`
	Chunks      ChunkStats   `json:"chunk_statistics"`
	Geo         geo.Context  `json:"geographic_context"`
}

type ContentStats struct {
	CharCount         int     `json:"char_count"`
	WordCount         int     `json:"word_count"`
	SentenceCount     int     `json:"sentence_count"`
	ParagraphCount    int     `json:"paragraph_count"`
	AvgWordLength     float64 `json:"avg_word_length"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

type Readability struct {
	FleschReadingEase float64 `json:"flesch_reading_ease"`
	GunningFog        float64 `json:"gunning_fog"`
}

type ChunkStats struct {
	Count        int     `json:"count"`
	Method       string  `json:"method"`
	AvgCharCount float64 `json:"avg_char_count"`
	AvgWordCount float64 `json:"avg_word_count"`
}

// BuildMetadata derives statistics, readability scores, key terms and
// geographic context from cleaned text and its chunks.
func BuildMetadata(text string, chunks []Chunk) Metadata {
	stats := contentStats(text)
	return Metadata{
		Stats:       stats,
		Readability: readability(text, stats),
		KeyTerms:    KeyTerms(text, keyTermLimit),
		Chunks:      chunkStats(chunks),
		Geo:         geo.Extract(text),
	}
}

func contentStats(text string) ContentStats {
	words := strings.Fields(text)
	sentences := splitSentences(text)
	paragraphs := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}

	s := ContentStats{
		CharCount:      len(text),
		WordCount:      len(words),
		SentenceCount:  len(sentences),
		ParagraphCount: paragraphs,
	}
	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += len(w)
		}
		s.AvgWordLength = round2(float64(total) / float64(len(words)))
	}
	if len(sentences) > 0 {
		s.AvgSentenceLength = round2(float64(len(words)) / float64(len(sentences)))
	}
	return s
}

// readability computes Flesch reading ease and the Gunning fog index
// with a heuristic syllable counter.
func readability(text string, stats ContentStats) Readability {
	if stats.WordCount == 0 || stats.SentenceCount == 0 {
		return Readability{}
	}

	words := strings.Fields(text)
	syllables := 0
	complexWords := 0
	for _, w := range words {
		n := countSyllables(w)
		syllables += n
		if n >= 3 {
			complexWords++
		}
	}

	wordsPerSentence := float64(stats.WordCount) / float64(stats.SentenceCount)
	syllablesPerWord := float64(syllables) / float64(stats.WordCount)
	complexRatio := float64(complexWords) / float64(stats.WordCount)

	return Readability{
		FleschReadingEase: round2(206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord),
		GunningFog:        round2(0.4 * (wordsPerSentence + 100*complexRatio)),
	}
}

// countSyllables approximates syllables as vowel groups, with the
// usual silent-e adjustment. Every word has at least one.
func countSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	if word == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

func chunkStats(chunks []Chunk) ChunkStats {
	cs := ChunkStats{Count: len(chunks)}
	if len(chunks) == 0 {
		return cs
	}
	cs.Method = chunks[0].Method
	totalChars, totalWords := 0, 0
	for _, c := range chunks {
		totalChars += c.CharCount
		totalWords += c.WordCount
	}
	cs.AvgCharCount = round2(float64(totalChars) / float64(len(chunks)))
	cs.AvgWordCount = round2(float64(totalWords) / float64(len(chunks)))
	return cs
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
