package database

// Assessment is one report kept by the country filter. The delimited
// taxonomy fields (countries, sources, ...) are stored as returned by
// the upstream API.
type Assessment struct {
	ID             int64
	ReportID       string
	Title          string
	Body           *string
	PrimaryCountry *string
	Countries      *string
	Sources        *string
	Formats        *string
	Themes         *string
	Languages      *string
	DateCreated    *string
	URL            *string
	FilterReason   *string
	FileInfo       *string // attachment list as JSON
	CreatedAt      *string
}

// Download states for document_downloads.status.
const (
	DownloadPending   = "pending"
	DownloadCompleted = "completed"
	DownloadFailed    = "failed"
	DownloadSkipped   = "skipped"
)

// Download is one attachment of an assessment.
type Download struct {
	ID           int64
	AssessmentID int64
	URL          string
	Filename     string
	LocalPath    *string
	Status       string
	Error        *string
	DownloadedAt *string
	CreatedAt    *string
}

// Extraction is the extracted text of one downloaded attachment.
type Extraction struct {
	ID          int64
	DownloadID  int64
	Text        *string
	PageCount   int
	Confidence  float64
	WordCount   int
	Method      *string
	Metadata    *string // derived metadata as JSON
	ExtractedAt *string
}

// ChunkRow is one stored content chunk. VectorID is set once the chunk
// has been embedded and added to the vector index.
type ChunkRow struct {
	ID           int64
	ExtractionID int64
	ChunkID      int
	Text         string
	CharCount    int
	WordCount    int
	VectorID     *string
	CreatedAt    *string
}

// Stats summarizes registry contents for the status command and API.
type Stats struct {
	Assessments    int            `json:"assessments"`
	Downloads      map[string]int `json:"downloads"`
	Extractions    int            `json:"extractions"`
	Chunks         int            `json:"chunks"`
	EmbeddedChunks int            `json:"embedded_chunks"`
}
