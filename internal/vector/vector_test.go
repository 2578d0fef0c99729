package vector

import (
	"math"
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.json")
	ix, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	return ix, path
}

func TestAddAndSearch(t *testing.T) {
	ix, _ := openTestIndex(t)

	id1, err := ix.Add(1, 0, "fighting in khartoum", []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if id1 == "" {
		t.Fatal("expected a vector id")
	}
	if _, err := ix.Add(1, 1, "cholera outbreak in kassala", []float64{0, 1, 0}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := ix.Add(2, 0, "displacement toward chad", []float64{0.9, 0.1, 0}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	results, err := ix.Search([]float64{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "fighting in khartoum" {
		t.Errorf("expected exact match first, got %q", results[0].Text)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0 for identical vector, got %v", results[0].Score)
	}
	if results[1].Score > results[0].Score {
		t.Error("results not sorted by score")
	}
}

func TestNormalizationMakesScaleIrrelevant(t *testing.T) {
	ix, _ := openTestIndex(t)
	if _, err := ix.Add(1, 0, "chunk", []float64{10, 0, 0}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	results, err := ix.Search([]float64{0.001, 0, 0}, 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("cosine score should ignore magnitude, got %v", results[0].Score)
	}
}

func TestDimensionEnforcement(t *testing.T) {
	ix, _ := openTestIndex(t)
	if _, err := ix.Add(1, 0, "chunk", []float64{1, 0, 0}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := ix.Add(1, 1, "bad", []float64{1, 0}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if _, err := ix.Search([]float64{1, 0}, 1); err == nil {
		t.Error("expected dimension mismatch error on search")
	}
	if _, err := ix.Add(1, 2, "zero", []float64{0, 0, 0}); err == nil {
		t.Error("expected zero-magnitude error")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ix, path := openTestIndex(t)
	if _, err := ix.Add(7, 0, "persisted chunk", []float64{0, 1, 0}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	reopened, err := Open(path, 3)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("expected 1 vector after reopen, got %d", reopened.Len())
	}
	results, err := reopened.Search([]float64{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if results[0].DocumentID != 7 || results[0].Text != "persisted chunk" {
		t.Errorf("unexpected entry after reopen: %+v", results[0])
	}

	if _, err := Open(path, 5); err == nil {
		t.Error("expected dimension mismatch on reopen with wrong dim")
	}
}

func TestDeleteDocument(t *testing.T) {
	ix, path := openTestIndex(t)
	for i := 0; i < 3; i++ {
		if _, err := ix.Add(1, i, "doc1", []float64{1, float64(i), 0}); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if _, err := ix.Add(2, 0, "doc2", []float64{0, 0, 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	removed, err := ix.DeleteDocument(1)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}
	if ix.Len() != 1 {
		t.Errorf("expected 1 remaining, got %d", ix.Len())
	}

	reopened, err := Open(path, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Len() != 1 {
		t.Errorf("delete not persisted, got %d", reopened.Len())
	}

	removed, err = ix.DeleteDocument(99)
	if err != nil || removed != 0 {
		t.Errorf("expected no-op delete, got %d, %v", removed, err)
	}
}
