// Package pipeline orchestrates the registry stages: fetch metadata,
// filter by country, persist, download attachments, extract and
// process content.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/sahelwatch/reliefdocs/internal/classify"
	"github.com/sahelwatch/reliefdocs/internal/config"
	"github.com/sahelwatch/reliefdocs/internal/database"
	"github.com/sahelwatch/reliefdocs/internal/download"
	"github.com/sahelwatch/reliefdocs/internal/extract"
	"github.com/sahelwatch/reliefdocs/internal/llm"
	"github.com/sahelwatch/reliefdocs/internal/process"
	"github.com/sahelwatch/reliefdocs/internal/reliefweb"
	"github.com/sahelwatch/reliefdocs/internal/vector"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Pipeline wires the registry stages together.
type Pipeline struct {
	cfg        *config.Config
	db         *database.DB
	client     *reliefweb.Client
	classifier *classify.Classifier
	embedder   llm.Embedder
	index      *vector.Index
	processor  *process.Processor
}

// New creates a pipeline from configuration. The vector index lives
// next to the database in the data directory.
func New(cfg *config.Config, db *database.DB) (*Pipeline, error) {
	emb := cfg.Embedding
	embedder := llm.CreateEmbedder(emb.Provider, emb.Model, emb.OllamaURL, emb.OpenAIModel, emb.APIKeyEnv)

	index, err := vector.Open(filepath.Join(cfg.GetDataDir(), "vectors.json"), emb.Dimension)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	return &Pipeline{
		cfg:        cfg,
		db:         db,
		client:     reliefweb.NewClient(cfg.API.BaseURL, cfg.API.AppName, cfg.API.RatePerSecond),
		classifier: classify.New(nil),
		embedder:   embedder,
		index:      index,
		processor: process.NewProcessor(embedder, process.ChunkOptions{
			Method:       cfg.Extraction.ChunkMethod,
			MaxChunkSize: cfg.Extraction.MaxChunkSize,
			Overlap:      cfg.Extraction.ChunkOverlap,
		}),
	}, nil
}

// Index exposes the vector index for search handlers.
func (p *Pipeline) Index() *vector.Index { return p.index }

// Embedder exposes the configured embedder, which may be nil.
func (p *Pipeline) Embedder() llm.Embedder { return p.embedder }

// Run executes the full pipeline: fetch, filter, save, download,
// extract and process.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}

	reports, step := p.runFetch(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	kept, decisions, step := p.runFilter(reports)
	r.Steps = append(r.Steps, step)

	step = p.runSave(kept, decisions)
	r.Steps = append(r.Steps, step)

	step = p.runDownload()
	r.Steps = append(r.Steps, step)

	step = p.runProcess(ctx)
	r.Steps = append(r.Steps, step)

	return r
}

// Ingest runs only the metadata half: fetch, filter, save.
func (p *Pipeline) Ingest(ctx context.Context) *Result {
	r := &Result{}

	reports, step := p.runFetch(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	kept, decisions, step := p.runFilter(reports)
	r.Steps = append(r.Steps, step)

	r.Steps = append(r.Steps, p.runSave(kept, decisions))
	return r
}

func (p *Pipeline) policy() classify.Policy {
	policy, err := classify.ParsePolicy(p.cfg.Filter.Policy)
	if err != nil {
		log.Printf("Invalid policy %q, defaulting to primary", p.cfg.Filter.Policy)
		return classify.PolicyPrimary
	}
	return policy
}

func (p *Pipeline) runFetch(ctx context.Context) ([]reliefweb.Report, StepResult) {
	log.Println("Step 1/5: Fetching report metadata...")

	_, guarded := classify.DefaultGuards().Lookup(p.cfg.Filter.Country)
	q := reliefweb.Query{
		Country: p.cfg.Filter.Country,
		// guarded countries fetch every candidate mention; the
		// classifier makes the precise call client-side
		Inclusive: guarded,
		Format:    p.cfg.Filter.Format,
		Theme:     p.cfg.Filter.Theme,
		Source:    p.cfg.Filter.Source,
		Language:  p.cfg.Filter.Language,
		DateFrom:  p.cfg.Filter.DateFrom,
		DateTo:    p.cfg.Filter.DateTo,
		Limit:     p.cfg.API.Limit,
	}

	reports, err := p.client.FetchReports(ctx, q)
	if err != nil {
		return nil, StepResult{Name: "Fetch", Err: err}
	}
	return reports, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d candidate reports", len(reports)),
	}
}

func (p *Pipeline) runFilter(reports []reliefweb.Report) ([]reliefweb.Report, []classify.Decision, StepResult) {
	log.Println("Step 2/5: Filtering by country...")

	records := make([]classify.Record, len(reports))
	for i, rep := range reports {
		records[i] = classify.Record{
			PrimaryCountry: rep.PrimaryCountry,
			AllCountries:   rep.Countries,
			Title:          rep.Title,
		}
	}

	keptRecords, decisions, res := p.classifier.Filter(records, p.cfg.Filter.Country, p.policy())

	// map kept records back to their reports by input order
	kept := make([]reliefweb.Report, 0, len(keptRecords))
	ki := 0
	for i := range records {
		if ki < len(keptRecords) && records[i] == keptRecords[ki] {
			kept = append(kept, reports[i])
			ki++
		}
	}

	return kept, decisions, StepResult{
		Name: "Filter",
		Summary: fmt.Sprintf("Kept %d of %d reports (%d rejected, %d flagged by audit)",
			res.Kept, res.Input, res.Rejected, res.Contaminated),
	}
}

func (p *Pipeline) runSave(kept []reliefweb.Report, decisions []classify.Decision) StepResult {
	log.Println("Step 3/5: Saving assessments...")

	saved, duplicates, attachments := 0, 0, 0
	for i, rep := range kept {
		a := assessmentFromReport(rep)
		if i < len(decisions) {
			reason := decisions[i].Reason
			a.FilterReason = &reason
		}

		id, err := p.db.InsertAssessment(a)
		if err != nil {
			log.Printf("Failed to save report %s: %v", rep.ReportID, err)
			continue
		}
		if id == 0 {
			duplicates++
			continue
		}
		saved++

		for _, f := range rep.Files {
			if f.URL == "" {
				continue
			}
			did, err := p.db.InsertDownload(id, f.URL, f.Filename)
			if err == nil && did > 0 {
				attachments++
			}
		}
	}

	return StepResult{
		Name: "Save",
		Summary: fmt.Sprintf("Saved %d new assessments (%d duplicates), %d attachments queued",
			saved, duplicates, attachments),
	}
}

func (p *Pipeline) runDownload() StepResult {
	log.Println("Step 4/5: Downloading attachments...")
	fetcher := download.NewFetcher(p.db, p.cfg.GetDataDir(), 60*time.Second)
	result := fetcher.FetchPending(nil)
	return StepResult{
		Name: "Download",
		Summary: fmt.Sprintf("Downloaded %d files (%d skipped, %d failed)",
			result.Downloaded, result.Skipped, result.Failed),
	}
}

func (p *Pipeline) runProcess(ctx context.Context) StepResult {
	log.Println("Step 5/5: Extracting and processing content...")

	downloads, err := p.db.GetDownloadsNeedingExtraction()
	if err != nil {
		return StepResult{Name: "Process", Err: err}
	}

	processed, failed := 0, 0
	for _, d := range downloads {
		if err := p.ProcessDownload(ctx, d); err != nil {
			failed++
			log.Printf("Processing failed for %s: %v", d.Filename, err)
			continue
		}
		processed++
	}

	return StepResult{
		Name:    "Process",
		Summary: fmt.Sprintf("Processed %d documents, %d failed", processed, failed),
	}
}

// ProcessDownload extracts, chunks, embeds and indexes one completed
// download. Extraction failures are recorded as zero-confidence rows
// so the document is not retried forever.
func (p *Pipeline) ProcessDownload(ctx context.Context, d database.Download) error {
	if d.Status != database.DownloadCompleted || d.LocalPath == nil {
		return fmt.Errorf("download %d not completed", d.ID)
	}

	content := extract.FromFile(*d.LocalPath)
	if content.Failed() {
		meta, _ := json.Marshal(content.Metadata)
		metaStr := string(meta)
		_, err := p.db.UpsertExtraction(&database.Extraction{
			DownloadID: d.ID,
			Confidence: 0,
			Metadata:   &metaStr,
		})
		if err != nil {
			return err
		}
		return fmt.Errorf("extraction produced no text")
	}

	result, err := p.processor.Run(ctx, content.Text)
	if err != nil {
		return err
	}

	method := ""
	if m, ok := content.Metadata["method"].(string); ok {
		method = m
	} else if f, ok := content.Metadata["format"].(string); ok {
		method = f
	}

	metaJSON, err := json.Marshal(struct {
		Extraction map[string]any   `json:"extraction"`
		Derived    process.Metadata `json:"derived"`
	}{content.Metadata, result.Metadata})
	if err != nil {
		return err
	}
	metaStr := string(metaJSON)

	extractionID, err := p.db.UpsertExtraction(&database.Extraction{
		DownloadID: d.ID,
		Text:       &result.CleanedText,
		PageCount:  content.PageCount,
		Confidence: content.Confidence,
		WordCount:  result.Metadata.Stats.WordCount,
		Method:     &method,
		Metadata:   &metaStr,
	})
	if err != nil {
		return err
	}

	rows := make([]database.ChunkRow, len(result.Chunks))
	for i, c := range result.Chunks {
		rows[i] = database.ChunkRow{
			ChunkID:   c.ChunkID,
			Text:      c.Text,
			CharCount: c.CharCount,
			WordCount: c.WordCount,
		}
	}
	stored, err := p.db.ReplaceChunks(extractionID, rows)
	if err != nil {
		return err
	}

	// stale vectors from a previous processing run
	if _, err := p.index.DeleteDocument(d.ID); err != nil {
		log.Printf("Failed to drop stale vectors for download %d: %v", d.ID, err)
	}

	for i, emb := range result.Embeddings {
		if i >= len(stored) {
			break
		}
		vectorID, err := p.index.Add(d.ID, stored[i].ChunkID, stored[i].Text, emb)
		if err != nil {
			log.Printf("Failed to index chunk %d of download %d: %v", stored[i].ChunkID, d.ID, err)
			continue
		}
		if err := p.db.SetChunkVector(stored[i].ID, vectorID); err != nil {
			log.Printf("Failed to record vector id for chunk %d: %v", stored[i].ID, err)
		}
	}

	return nil
}

// ProcessDownloadByID looks up one download and processes it.
func (p *Pipeline) ProcessDownloadByID(ctx context.Context, downloadID int64) error {
	d, err := p.db.GetDownloadByID(downloadID)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("download %d not found", downloadID)
	}
	return p.ProcessDownload(ctx, *d)
}

// FilterOptions returns the known values of a filterable taxonomy
// field, for flag validation and the options endpoint.
func (p *Pipeline) FilterOptions(ctx context.Context, field string) ([]string, error) {
	return p.client.FilterOptions(ctx, field)
}

// Search embeds the query and returns the most similar chunks.
func (p *Pipeline) Search(ctx context.Context, query string, topK int) ([]vector.Result, error) {
	if p.embedder == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}
	embeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected one query embedding, got %d", len(embeddings))
	}
	return p.index.Search(embeddings[0], topK)
}

func assessmentFromReport(rep reliefweb.Report) *database.Assessment {
	a := &database.Assessment{
		ReportID: rep.ReportID,
		Title:    rep.Title,
	}
	a.Body = optional(rep.Body)
	a.PrimaryCountry = optional(rep.PrimaryCountry)
	a.Countries = optional(rep.Countries)
	a.Sources = optional(rep.Sources)
	a.Formats = optional(rep.Formats)
	a.Themes = optional(rep.Themes)
	a.Languages = optional(rep.Languages)
	a.DateCreated = optional(rep.DateCreated)
	a.URL = optional(rep.URL)

	if len(rep.Files) > 0 {
		if data, err := json.Marshal(rep.Files); err == nil {
			s := string(data)
			a.FileInfo = &s
		}
	}
	return a
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
