// Package process turns extracted text into cleaned chunks with
// embeddings and derived metadata.
package process

import (
	"context"
	"fmt"
	"log"

	"github.com/sahelwatch/reliefdocs/internal/llm"
)

// Result is the outcome of processing one document.
type Result struct {
	CleanedText string
	Chunks      []Chunk
	Embeddings  [][]float64 // parallel to Chunks; empty if no embedder
	Metadata    Metadata
}

// Processor runs the clean -> chunk -> embed -> metadata sequence.
// A nil embedder skips the embedding step.
type Processor struct {
	embedder llm.Embedder
	opts     ChunkOptions
}

func NewProcessor(embedder llm.Embedder, opts ChunkOptions) *Processor {
	return &Processor{embedder: embedder, opts: opts}
}

// Run processes raw extracted text. Embedding failures degrade to a
// result without vectors rather than failing the document.
func (p *Processor) Run(ctx context.Context, text string) (*Result, error) {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil, fmt.Errorf("no text after cleaning")
	}

	chunks := Split(cleaned, p.opts)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced")
	}

	res := &Result{
		CleanedText: cleaned,
		Chunks:      chunks,
		Metadata:    BuildMetadata(cleaned, chunks),
	}

	if p.embedder == nil {
		return res, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		log.Printf("Embedding failed, continuing without vectors: %v", err)
		return res, nil
	}
	if len(embeddings) != len(chunks) {
		log.Printf("Embedder returned %d vectors for %d chunks, dropping them", len(embeddings), len(chunks))
		return res, nil
	}
	res.Embeddings = embeddings
	return res, nil
}
