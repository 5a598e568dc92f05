package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qqlww1987/KnowFlow-sub000/internal/config"
	"github.com/qqlww1987/KnowFlow-sub000/internal/coordmap"
	"github.com/qqlww1987/KnowFlow-sub000/internal/pipeline"
	"github.com/qqlww1987/KnowFlow-sub000/internal/token"
)

const testKey = "test-key"

func testServer() *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:              testKey,
		MaxUploadBytes:      1 << 20,
		DefaultStrategy:     "smart",
		DefaultTargetTokens: 128,
		DefaultMinTokens:    8,
		ParentTokenBudget:   512,
		BoundaryLevels:      []int{1, 2, 3},
		WorkerCount:         1,
		MaxQueueSize:        4,
	}
	counter := token.NewCounter()
	orch := pipeline.NewOrchestrator(cfg, counter, log)
	return NewServer(orch, counter, log, cfg)
}

func doJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodPost, "/api/segment", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/segment", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/segment", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer ")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with empty token, got %d", rec.Code)
	}
}

func TestHandleSegment(t *testing.T) {
	srv := testServer()
	rec := doJSON(t, srv, "/api/segment", map[string]any{
		"text":          "# Title\n\n" + strings.Repeat("some body text. ", 100),
		"doc_id":        "doc-1",
		"strategy":      "smart",
		"target_tokens": 50,
		"min_tokens":    5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("segment: %d %s", rec.Code, rec.Body.String())
	}
	var resp segmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Chunks) < 2 {
		t.Errorf("expected multiple chunks, got %d", len(resp.Chunks))
	}
	if resp.UsedStrategy != "smart" {
		t.Errorf("used strategy: %s", resp.UsedStrategy)
	}
}

func TestHandleSegment_RepairOverrides(t *testing.T) {
	srv := testServer()
	text := "# A\n\ntiny.\n\n# B\n\n" + strings.Repeat("b content words. ", 15)
	base := map[string]any{
		"text":          text,
		"doc_id":        "doc-adv",
		"strategy":      "advanced",
		"target_tokens": 200,
		"min_tokens":    20,
	}

	rec := doJSON(t, srv, "/api/segment", base)
	if rec.Code != http.StatusOK {
		t.Fatalf("segment: %d %s", rec.Code, rec.Body.String())
	}
	var merged segmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &merged); err != nil {
		t.Fatal(err)
	}
	if len(merged.Chunks) != 1 {
		t.Fatalf("default merge factor should merge the tiny group, got %d chunks", len(merged.Chunks))
	}

	// A tight merge_factor blocks the forward merge.
	base["merge_factor"] = 0.1
	rec = doJSON(t, srv, "/api/segment", base)
	if rec.Code != http.StatusOK {
		t.Fatalf("segment with override: %d %s", rec.Code, rec.Body.String())
	}
	var split segmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &split); err != nil {
		t.Fatal(err)
	}
	if len(split.Chunks) != 2 {
		t.Errorf("merge_factor override ignored: got %d chunks, want 2", len(split.Chunks))
	}
}

func TestHandleSegment_MissingText(t *testing.T) {
	srv := testServer()
	rec := doJSON(t, srv, "/api/segment", map[string]any{"doc_id": "d"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleHierarchy(t *testing.T) {
	srv := testServer()

	// Segment first, then group the returned chunks.
	segRec := doJSON(t, srv, "/api/segment", map[string]any{
		"text":          strings.Repeat("paragraph text here.\n\n", 40),
		"doc_id":        "doc-h",
		"strategy":      "basic",
		"target_tokens": 30,
	})
	var segResp segmentResponse
	if err := json.Unmarshal(segRec.Body.Bytes(), &segResp); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, "/api/hierarchy", map[string]any{
		"doc_id":              "doc-h",
		"chunks":              segResp.Chunks,
		"parent_token_budget": 100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("hierarchy: %d %s", rec.Code, rec.Body.String())
	}
	var resp hierarchyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Relationships) != len(segResp.Chunks) {
		t.Errorf("expected one relationship per chunk: %d vs %d",
			len(resp.Relationships), len(segResp.Chunks))
	}
	if len(resp.Parents) == 0 || len(resp.Parents) > len(segResp.Chunks) {
		t.Errorf("implausible parent count %d", len(resp.Parents))
	}
}

func TestHandleCoordinates(t *testing.T) {
	srv := testServer()
	rec := doJSON(t, srv, "/api/coordinates", map[string]any{
		"chunks": []string{"sample paragraph content for the rescale check"},
		"layout_elements": []map[string]any{
			{"text": "sample paragraph content for the rescale check", "bbox": []float64{100, 100, 300, 200}, "page": 1},
		},
		"coordinate_system": "dots",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("coordinates: %d %s", rec.Code, rec.Body.String())
	}
	var resp coordinatesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Positions) != 1 || len(resp.Positions[0]) != 1 {
		t.Fatalf("unexpected positions: %+v", resp.Positions)
	}
	want := coordmap.Position{0, 36, 108, 36, 72}
	if resp.Positions[0][0] != want {
		t.Errorf("dots position: got %v, want %v", resp.Positions[0][0], want)
	}
}

func TestHandleCoordinates_BadSystem(t *testing.T) {
	srv := testServer()
	rec := doJSON(t, srv, "/api/coordinates", map[string]any{
		"chunks":            []string{"x"},
		"coordinate_system": "tesseract",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown system, got %d", rec.Code)
	}
}

func TestHandleJobStatus_NotFound(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest(http.MethodGet, "/api/ingest/nope", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
