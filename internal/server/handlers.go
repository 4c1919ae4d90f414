package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tablewise/tablewise/internal/metadata"
	"github.com/tablewise/tablewise/internal/pipeline"
	"github.com/tablewise/tablewise/internal/session"
)

// Handler exposes the pipeline service over HTTP.
type Handler struct {
	service        *pipeline.Service
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHandler wires the routes onto a handler.
func NewHandler(service *pipeline.Service, logger *zap.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches all endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /upload", h.Upload)
	mux.HandleFunc("GET /sessions/{sid}/metadata", h.Metadata)
	mux.HandleFunc("POST /sessions/{sid}/analyze", h.Analyze)
	mux.HandleFunc("POST /sessions/{sid}/commentary", h.Commentary)
	mux.HandleFunc("POST /sessions/{sid}/query", h.Query)
	mux.HandleFunc("POST /sessions/{sid}/report", h.Report)
	mux.HandleFunc("GET /sessions/{sid}/charts/{name}", h.Chart)
	mux.HandleFunc("GET /sessions/{sid}/reports/{name}", h.ReportFile)
	mux.HandleFunc("DELETE /sessions/{sid}", h.DeleteSession)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadResponse is the body returned by Upload.
type uploadResponse struct {
	SessionID string                   `json:"session_id"`
	Files     []metadata.TableMetadata `json:"files"`
}

// Upload accepts one or more CSV files as multipart form data. An optional
// session_id form field appends to an existing session; otherwise a new
// session is created for the first file and reused for the rest.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "no files provided; use multipart field 'files'")
		return
	}

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	resp := uploadResponse{}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "opening "+fh.Filename+": "+err.Error())
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "reading "+fh.Filename+": "+err.Error())
			return
		}

		sid, md, err := h.service.Upload(r.Context(), sessionID, fh.Filename, data)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		sessionID = sid
		resp.Files = append(resp.Files, *md)
	}
	resp.SessionID = sessionID
	writeJSON(w, h.logger, http.StatusCreated, resp)
}

// Metadata returns per-file metadata for the session.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	mds, err := h.service.Metadata(r.Context(), r.PathValue("sid"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"files": mds})
}

// Analyze runs the full pipeline and returns the analysis report.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Analyze(r.Context(), r.PathValue("sid"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rep)
}

// Commentary returns model commentary on the session's analysis.
func (h *Handler) Commentary(w http.ResponseWriter, r *http.Request) {
	text, err := h.service.Commentary(r.Context(), r.PathValue("sid"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"commentary": text})
}

type queryRequest struct {
	Question string `json:"question"`
}

// Query answers a free-form question grounded in the analysis.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	answer, err := h.service.Query(r.Context(), r.PathValue("sid"), req.Question)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"answer": answer})
}

// Report builds the markdown report artifact and returns its download URL.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	sid := r.PathValue("sid")
	name, _, err := h.service.BuildReport(r.Context(), sid)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, map[string]string{
		"report": name,
		"url":    "/sessions/" + sid + "/reports/" + name,
	})
}

// Chart serves a rendered chart PNG.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, "image/png")
}

// ReportFile serves a built markdown report.
func (h *Handler) ReportFile(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, "text/markdown; charset=utf-8")
}

func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, contentType string) {
	data, err := h.service.Artifact(r.Context(), r.PathValue("sid"), r.PathValue("name"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write artifact", zap.Error(err))
	}
}

// DeleteSession removes a session and everything stored under it.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), r.PathValue("sid")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

// writeServiceError maps pipeline and store errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var ingestErr *pipeline.ErrIngestion
	var llmUnavailable *pipeline.ErrLLMUnavailable
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, h.logger, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrBlobNotFound):
		writeError(w, h.logger, http.StatusNotFound, "not found")
	case errors.As(err, &ingestErr):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.As(err, &llmUnavailable):
		writeError(w, h.logger, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
	}
}
