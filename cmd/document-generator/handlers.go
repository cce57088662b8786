package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
	"github.com/mithun789/campus-Me/internal/services"
)

// handleGenerate is the HTTP handler for document generation.
func handleGenerate(w http.ResponseWriter, r *http.Request) {
	gen, ok := ready(w, http.MethodPost, r)
	if !ok {
		return
	}

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		writeError(w, http.StatusBadRequest, "could not parse JSON")
		return
	}

	res, err := gen.Process(r.Context(), &req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleArtifactInfo returns an artifact's metadata.
func handleArtifactInfo(w http.ResponseWriter, r *http.Request) {
	gen, ok := ready(w, http.MethodGet, r)
	if !ok {
		return
	}
	a, err := gen.Retriever.GetArtifactInfo(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, infoResponse(a))
}

// handleArtifactPreview returns a truncated plain-text preview.
func handleArtifactPreview(w http.ResponseWriter, r *http.Request) {
	gen, ok := ready(w, http.MethodGet, r)
	if !ok {
		return
	}
	maxChars := gen.Config.PreviewChars
	if v := r.URL.Query().Get("maxChars"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "maxChars must be a positive integer")
			return
		}
		maxChars = n
	}
	preview, err := gen.Retriever.GetArtifactPreview(r.URL.Query().Get("id"), maxChars)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(preview))
}

// handleArtifactDownload streams one stored format as an attachment.
func handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	gen, ok := ready(w, http.MethodGet, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	dl, err := gen.Retriever.GetArtifactBytes(r.Context(), q.Get("id"), models.ParseFormat(q.Get("format")))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	if _, err := w.Write(dl.Data); err != nil {
		slog.Error("Failed to write download", "error", err, "filename", dl.Filename)
	}
}

// handleArtifactRelease marks an artifact's files as processed.
func handleArtifactRelease(w http.ResponseWriter, r *http.Request) {
	gen, ok := ready(w, http.MethodPost, r)
	if !ok {
		return
	}
	after := time.Duration(0)
	if v := r.URL.Query().Get("afterSeconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "afterSeconds must be a non-negative integer")
			return
		}
		after = time.Duration(n) * time.Second
	}
	n, err := gen.Retriever.ReleaseArtifact(r.URL.Query().Get("id"), after)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, models.ArtifactReleaseResponse{Status: "released", Files: n})
}

// handleArtifactList lists every live artifact.
func handleArtifactList(w http.ResponseWriter, r *http.Request) {
	gen, ok := ready(w, http.MethodGet, r)
	if !ok {
		return
	}
	list := gen.Retriever.ListArtifacts()
	out := make([]models.ArtifactInfoResponse, len(list))
	for i, a := range list {
		out[i] = infoResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSystemStatus reports health, process usage, recommendations and
// storage usage. files=true lists every tracked file as well.
func handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	gen, ok := ready(w, http.MethodGet, r)
	if !ok {
		return
	}
	withFiles := false
	if v := r.URL.Query().Get("files"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "files must be a boolean")
			return
		}
		withFiles = b
	}
	writeJSON(w, http.StatusOK, gen.Status(withFiles))
}

// handleMetrics serves the Prometheus exposition.
func handleMetrics(w http.ResponseWriter, r *http.Request) {
	gen, ok := ready(w, http.MethodGet, r)
	if !ok {
		return
	}
	gen.Metrics.Handler().ServeHTTP(w, r)
}

// ready checks the method and returns the initialized generator.
func ready(w http.ResponseWriter, method string, r *http.Request) (*services.GeneratorFunction, bool) {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}
	gen, err := getGenerator()
	if err != nil {
		slog.Error("Critical: Document generator initialization failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to initialize service")
		return nil, false
	}
	return gen, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrResourceExhausted), errors.Is(err, models.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrFormatUnavailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func infoResponse(a models.Artifact) models.ArtifactInfoResponse {
	formats := make([]models.Format, 0, len(a.Formats))
	for f := range a.Formats {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return models.ArtifactInfoResponse{
		ID:          a.ID,
		Title:       a.Title,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
		Formats:     formats,
		Metadata:    a.Metadata,
		AccessCount: a.AccessCount,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Status: "error", Error: msg})
}
