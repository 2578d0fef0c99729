// Package reliefweb queries the ReliefWeb reports API.
package reliefweb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	maxPageSize = 1000
	apiTimeout  = 60 * time.Second
)

// Report is one report's metadata, with taxonomy lists flattened to
// the delimited form the rest of the registry works with.
type Report struct {
	ReportID       string
	Title          string
	Body           string
	URL            string
	DateCreated    string // YYYY-MM-DD or empty
	PrimaryCountry string
	Countries      string // "; " delimited
	Sources        string
	Formats        string
	Themes         string
	Languages      string
	Files          []FileAttachment
}

// FileAttachment is one downloadable file of a report.
type FileAttachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
}

// Query describes one reports request.
type Query struct {
	Country string
	// Inclusive matches the country anywhere, not just as primary.
	// Used for guarded countries where the classifier does the precise
	// filtering client-side.
	Inclusive bool
	Format    string
	Theme     string
	Source    string
	Language  string
	DateFrom  string // YYYY-MM-DD
	DateTo    string
	Limit     int
}

// Client talks to the ReliefWeb API. Requests go through a rate
// limiter per the API's fair use policy; filter vocabularies are
// cached in memory.
type Client struct {
	baseURL string
	appname string
	http    *http.Client
	limiter *rate.Limiter
	cache   *gocache.Cache
}

// NewClient creates an API client. ratePerSecond <= 0 defaults to 1.
func NewClient(baseURL, appname string, ratePerSecond int) *Client {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		appname: appname,
		http:    &http.Client{Timeout: apiTimeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		cache:   gocache.New(1*time.Hour, 10*time.Minute),
	}
}

// wire format of a reports POST request
type apiRequest struct {
	Fields struct {
		Include []string `json:"include"`
	} `json:"fields"`
	Filter *apiFilter `json:"filter,omitempty"`
	Sort   []string   `json:"sort,omitempty"`
	Limit  int        `json:"limit"`
}

type apiFilter struct {
	Operator   string      `json:"operator,omitempty"`
	Conditions []condition `json:"conditions,omitempty"`
}

type condition struct {
	Field  string `json:"field"`
	Value  any    `json:"value,omitempty"`
	Negate bool   `json:"negate,omitempty"`
}

var includeFields = []string{
	"id", "title", "body", "url", "date.created",
	"primary_country.name", "country.name", "source.name",
	"format.name", "theme.name", "language.name",
	"file.url", "file.filename", "file.mimetype",
}

// FetchReports queries the API and returns flattened report metadata.
func (c *Client) FetchReports(ctx context.Context, q Query) ([]Report, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	var req apiRequest
	req.Fields.Include = includeFields
	req.Filter = buildFilter(q)
	req.Sort = []string{"date.created:desc"}
	req.Limit = limit

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}

	url := fmt.Sprintf("%s?appname=%s", c.baseURL, c.appname)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reliefweb API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reliefweb API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	reports := make([]Report, 0, len(result.Data))
	for _, item := range result.Data {
		r := flatten(item)
		if r.ReportID == "" || r.Title == "" {
			continue
		}
		reports = append(reports, r)
	}

	log.Printf("Fetched %d reports from ReliefWeb (of %d total matches)", len(reports), result.TotalCount)
	return reports, nil
}

// buildFilter translates a Query into API filter conditions. For
// guarded countries the caller sets Inclusive so the server returns
// every candidate and the classifier decides.
func buildFilter(q Query) *apiFilter {
	var conds []condition

	if q.Country != "" {
		field := "primary_country.name.exact"
		if q.Inclusive {
			field = "country.name.exact"
		}
		conds = append(conds, condition{Field: field, Value: q.Country})
	}
	if q.Format != "" {
		conds = append(conds, condition{Field: "format.name.exact", Value: q.Format})
	}
	if q.Theme != "" {
		conds = append(conds, condition{Field: "theme.name.exact", Value: q.Theme})
	}
	if q.Source != "" {
		conds = append(conds, condition{Field: "source.name.exact", Value: q.Source})
	}
	if q.Language != "" {
		conds = append(conds, condition{Field: "language.name.exact", Value: q.Language})
	}
	if q.DateFrom != "" || q.DateTo != "" {
		val := map[string]string{}
		if q.DateFrom != "" {
			val["from"] = q.DateFrom + "T00:00:00+00:00"
		}
		if q.DateTo != "" {
			val["to"] = q.DateTo + "T23:59:59+00:00"
		}
		conds = append(conds, condition{Field: "date.created", Value: val})
	}

	if len(conds) == 0 {
		return nil
	}
	return &apiFilter{Operator: "AND", Conditions: conds}
}

type apiResponse struct {
	TotalCount int       `json:"totalCount"`
	Data       []apiItem `json:"data"`
}

type apiItem struct {
	ID     json.Number `json:"id"`
	Fields apiFields   `json:"fields"`
}

type apiFields struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Date  struct {
		Created string `json:"created"`
	} `json:"date"`
	PrimaryCountry []named          `json:"primary_country"`
	Country        []named          `json:"country"`
	Source         []named          `json:"source"`
	Format         []named          `json:"format"`
	Theme          []named          `json:"theme"`
	Language       []named          `json:"language"`
	File           []FileAttachment `json:"file"`
}

type named struct {
	Name string `json:"name"`
}

func flatten(item apiItem) Report {
	f := item.Fields

	var created string
	if f.Date.Created != "" {
		if t, err := time.Parse(time.RFC3339, f.Date.Created); err == nil {
			created = t.Format("2006-01-02")
		}
	}

	var primary string
	if len(f.PrimaryCountry) > 0 {
		primary = f.PrimaryCountry[0].Name
	}

	return Report{
		ReportID:       item.ID.String(),
		Title:          strings.TrimSpace(f.Title),
		Body:           strings.TrimSpace(f.Body),
		URL:            f.URL,
		DateCreated:    created,
		PrimaryCountry: primary,
		Countries:      joinNames(f.Country),
		Sources:        joinNames(f.Source),
		Formats:        joinNames(f.Format),
		Themes:         joinNames(f.Theme),
		Languages:      joinNames(f.Language),
		Files:          f.File,
	}
}

func joinNames(items []named) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		if it.Name != "" {
			names = append(names, it.Name)
		}
	}
	return strings.Join(names, "; ")
}
