package process

import (
	"strings"
	"unicode"
)

// Chunk is one retrieval unit of a processed document. ChunkID is the
// zero-based position within the document.
type Chunk struct {
	ChunkID   int
	Text      string
	Method    string
	CharCount int
	WordCount int
}

// ChunkOptions controls how text is split. Overlap is in characters for
// semantic chunking and is divided by ten to get an overlap word count
// for fixed chunking.
type ChunkOptions struct {
	Method       string // semantic | sentence | fixed
	MaxChunkSize int    // characters
	Overlap      int    // characters
}

const (
	defaultMaxChunkSize = 1000
	defaultOverlap      = 100
)

// Split divides cleaned text into chunks using the configured method.
// Unknown methods fall back to semantic chunking.
func Split(text string, opts ChunkOptions) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = defaultMaxChunkSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = defaultOverlap
	}

	var pieces []string
	method := opts.Method
	switch method {
	case "sentence":
		pieces = sentenceChunks(text, opts)
	case "fixed":
		pieces = fixedChunks(text, opts)
	default:
		method = "semantic"
		pieces = semanticChunks(text, opts)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ChunkID:   len(chunks),
			Text:      piece,
			Method:    method,
			CharCount: len(piece),
			WordCount: len(strings.Fields(piece)),
		})
	}
	return chunks
}

// semanticChunks groups whole sentences up to the size limit and
// carries trailing sentences into the next chunk as overlap.
func semanticChunks(text string, opts ChunkOptions) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// keep trailing sentences within the overlap budget
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			l := len(current[i]) + 1
			if carryLen+l > opts.Overlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += l
		}
		current = carry
		currentLen = carryLen
	}

	for _, s := range sentences {
		if currentLen > 0 && currentLen+len(s)+1 > opts.MaxChunkSize {
			flush()
		}
		current = append(current, s)
		currentLen += len(s) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// sentenceChunks groups sentences without measuring overlap in
// characters; instead the last two sentences repeat in the next chunk.
func sentenceChunks(text string, opts ChunkOptions) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	const overlapSentences = 2
	var chunks []string
	var current []string
	currentLen := 0

	for _, s := range sentences {
		if currentLen > 0 && currentLen+len(s)+1 > opts.MaxChunkSize {
			chunks = append(chunks, strings.Join(current, " "))
			start := len(current) - overlapSentences
			if start < 0 {
				start = 0
			}
			current = append([]string{}, current[start:]...)
			currentLen = 0
			for _, c := range current {
				currentLen += len(c) + 1
			}
		}
		current = append(current, s)
		currentLen += len(s) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// fixedChunks slides a word window of roughly MaxChunkSize characters
// with Overlap/10 words of overlap between windows.
func fixedChunks(text string, opts ChunkOptions) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	// average English word plus space is ~6 characters
	wordsPerChunk := opts.MaxChunkSize / 6
	if wordsPerChunk < 1 {
		wordsPerChunk = 1
	}
	overlapWords := opts.Overlap / 10
	if overlapWords >= wordsPerChunk {
		overlapWords = wordsPerChunk - 1
	}

	var chunks []string
	step := wordsPerChunk - overlapWords
	for start := 0; start < len(words); start += step {
		end := start + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// splitSentences breaks text at sentence-ending punctuation followed by
// whitespace and an upper-case or digit start. Punctuation stays with
// its sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(strings.Join(strings.Fields(text), " "))
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// consume runs like "..." or "?!"
		end := i
		for end+1 < len(runes) && (runes[end+1] == '.' || runes[end+1] == '!' || runes[end+1] == '?') {
			end++
		}
		next := end + 1
		if next < len(runes) && runes[next] == ' ' {
			after := next + 1
			if after >= len(runes) || unicode.IsUpper(runes[after]) || unicode.IsDigit(runes[after]) {
				s := strings.TrimSpace(string(runes[start : end+1]))
				if s != "" {
					sentences = append(sentences, s)
				}
				start = after
			}
		}
		i = end
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
