// Package server is the JSON API over the registry: stats, assessment
// listings, on-demand processing and semantic search.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/sahelwatch/reliefdocs/internal/database"
	"github.com/sahelwatch/reliefdocs/internal/export"
	"github.com/sahelwatch/reliefdocs/internal/pipeline"
)

const defaultListLimit = 50

// Server is the HTTP API server.
type Server struct {
	db   *database.DB
	pipe *pipeline.Pipeline
	mux  *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, pipe *pipeline.Pipeline) *Server {
	s := &Server{db: db, pipe: pipe, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/assessments", s.handleAssessments)
	s.mux.HandleFunc("/api/assessments/", s.handleAssessment)
	s.mux.HandleFunc("/api/process/", s.handleProcess)
	s.mux.HandleFunc("/api/process_bulk", s.handleProcessBulk)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/options", s.handleOptions)
	s.mux.HandleFunc("/api/export", s.handleExport)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"database": stats,
		"vectors":  s.pipe.Index().Len(),
	})
}

// assessmentJSON is the wire form of an assessment row.
type assessmentJSON struct {
	ID             int64  `json:"id"`
	ReportID       string `json:"report_id"`
	Title          string `json:"title"`
	PrimaryCountry string `json:"primary_country,omitempty"`
	Countries      string `json:"countries,omitempty"`
	Sources        string `json:"sources,omitempty"`
	Formats        string `json:"formats,omitempty"`
	Themes         string `json:"themes,omitempty"`
	DateCreated    string `json:"date_created,omitempty"`
	URL            string `json:"url,omitempty"`
	FilterReason   string `json:"filter_reason,omitempty"`
}

func toAssessmentJSON(a database.Assessment) assessmentJSON {
	return assessmentJSON{
		ID:             a.ID,
		ReportID:       a.ReportID,
		Title:          a.Title,
		PrimaryCountry: deref(a.PrimaryCountry),
		Countries:      deref(a.Countries),
		Sources:        deref(a.Sources),
		Formats:        deref(a.Formats),
		Themes:         deref(a.Themes),
		DateCreated:    deref(a.DateCreated),
		URL:            deref(a.URL),
		FilterReason:   deref(a.FilterReason),
	}
}

func (s *Server) handleAssessments(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	assessments, err := s.db.ListAssessments(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	out := make([]assessmentJSON, len(assessments))
	for i, a := range assessments {
		out[i] = toAssessmentJSON(a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": out, "count": len(out)})
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/assessments/"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assessment id")
		return
	}

	a, err := s.db.GetAssessmentByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read assessment")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "assessment not found")
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentJSON(*a))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/process/"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid download id")
		return
	}

	if err := s.pipe.ProcessDownloadByID(r.Context(), id); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"document_id": id, "status": "error", "error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id, "status": "success", "message": "document processed",
	})
}

func (s *Server) handleProcessBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		DocumentIDs []int64 `json:"document_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.DocumentIDs) == 0 {
		writeError(w, http.StatusBadRequest, "document_ids is empty")
		return
	}

	type itemResult struct {
		DocumentID int64  `json:"document_id"`
		Status     string `json:"status"`
		Message    string `json:"message,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	results := make([]itemResult, 0, len(req.DocumentIDs))
	succeeded := 0
	for _, id := range req.DocumentIDs {
		if err := s.pipe.ProcessDownloadByID(r.Context(), id); err != nil {
			results = append(results, itemResult{DocumentID: id, Status: "error", Error: err.Error()})
			continue
		}
		results = append(results, itemResult{DocumentID: id, Status: "success", Message: "document processed"})
		succeeded++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}

	topK := 5
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid k")
			return
		}
		topK = n
	}

	results, err := s.pipe.Search(r.Context(), query, topK)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		field = "format.name"
	}

	values, err := s.pipe.FilterOptions(r.Context(), field)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": field, "values": values})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	assessments, err := s.db.ListAssessments(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	data, err := export.AssessmentsXLSX(assessments)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="assessments.xlsx"`)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Serve starts the API server on the given port.
func Serve(db *database.DB, pipe *pipeline.Pipeline, port int) error {
	srv := New(db, pipe)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
