package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("unexpected model %q", req.Model)
		}
		embeddings := make([][]float64, len(req.Input))
		for i := range embeddings {
			embeddings[i] = []float64{0.1, 0.2, 0.3}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", srv.URL)
	got, err := e.Embed(context.Background(), []string{"first chunk", "second chunk"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(got))
	}
	if len(got[0]) != 3 || got[0][0] != 0.1 {
		t.Errorf("unexpected embedding %v", got[0])
	}
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", srv.URL)
	if _, err := e.Embed(context.Background(), []string{"chunk"}); err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestCreateEmbedderNone(t *testing.T) {
	if e := CreateEmbedder("none", "", "", "", ""); e != nil {
		t.Errorf("expected nil embedder for provider 'none', got %T", e)
	}
}

func TestOpenAIEmbedderUnconfigured(t *testing.T) {
	t.Setenv("RELIEFDOCS_TEST_MISSING_KEY", "")
	e := NewOpenAIEmbedder("text-embedding-3-small", "RELIEFDOCS_TEST_MISSING_KEY")
	if e.IsConfigured() {
		t.Error("expected unconfigured embedder without API key")
	}
	if _, err := e.Embed(context.Background(), []string{"chunk"}); err == nil {
		t.Error("expected error from unconfigured embedder")
	}
}
