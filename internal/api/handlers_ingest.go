package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/qqlww1987/KnowFlow-sub000/internal/coordmap"
	"github.com/qqlww1987/KnowFlow-sub000/internal/parser"
	"github.com/qqlww1987/KnowFlow-sub000/internal/pipeline"
	"github.com/qqlww1987/KnowFlow-sub000/internal/segment"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size; extra slack covers form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	docID := r.FormValue("doc_id")
	if docID == "" {
		docID = pipeline.ContentHashHex(data)[:16]
	}

	job := &pipeline.Job{
		DocID:        docID,
		Filename:     filename,
		Strategy:     segment.Strategy(formOr(r, "strategy", s.cfg.DefaultStrategy)),
		TargetTokens: formInt(r, "target_tokens", s.cfg.DefaultTargetTokens),
		MinTokens:    formInt(r, "min_tokens", s.cfg.DefaultMinTokens),
		ParentBudget: formInt(r, "parent_token_budget", s.cfg.ParentTokenBudget),
		BuildParents: r.FormValue("build_parents") != "false",
	}
	job.SetFileData(data)

	// Optional OCR layout for coordinate mapping.
	if layoutJSON := r.FormValue("layout_elements"); layoutJSON != "" {
		var elements []coordmap.LayoutElement
		if err := json.Unmarshal([]byte(layoutJSON), &elements); err != nil {
			jsonError(w, "invalid layout_elements: "+err.Error(), http.StatusBadRequest)
			return
		}
		system := coordmap.System(r.FormValue("coordinate_system"))
		switch system {
		case coordmap.SystemMinerU, coordmap.SystemDOTS:
		default:
			jsonError(w, "coordinate_system must be mineru or dots when layout_elements is set", http.StatusBadRequest)
			return
		}
		job.Layout = elements
		job.LayoutSystem = system
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	jsonResponse(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"doc_id": docID,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.Job(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	resp := struct {
		pipeline.JobSnapshot
		Result *pipeline.Result `json:"result,omitempty"`
	}{
		JobSnapshot: job.Snapshot(),
		Result:      job.Result(),
	}
	jsonResponse(w, http.StatusOK, resp)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}

func formOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func formInt(r *http.Request, key string, fallback int) int {
	if v := r.FormValue(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
