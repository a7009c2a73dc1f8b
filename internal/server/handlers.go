package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/config"
	"github.com/hyperjump/cognidocs/internal/extract"
	"github.com/hyperjump/cognidocs/internal/models"
	"github.com/hyperjump/cognidocs/internal/storage"
)

const (
	kindTooLarge   = "too_large"
	multipartSlack = 1 << 20
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "CogniDocs API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Status(r.Context())
	if err != nil {
		s.logger.Warn("health: status failed", zap.Error(err))
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"mode":   s.engine.Mode(),
			"error":  err.Error(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"mode":            st.Mode,
		"documents_count": st.DocumentsCount,
		"chunk_count":     st.ChunkCount,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("question", req.Question), zap.Int("max_results", req.MaxResults))
	ans, err := s.engine.Query(r.Context(), &req)
	if err != nil {
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxFiles := s.config.Server.MaxFiles
	maxBytes := s.config.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var files []*multipart.FileHeader
	files = append(files, r.MultipartForm.File["files"]...)
	files = append(files, r.MultipartForm.File["file"]...)
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files provided")
		return
	}
	if len(files) > maxFiles {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("too many files: %d (max %d)", len(files), maxFiles))
		return
	}

	resp := models.UploadResponse{UploadedFiles: []string{}, Results: make([]models.UploadResult, 0, len(files))}
	var kinds []string
	for _, fh := range files {
		res := s.ingestUpload(r, fh, maxBytes)
		if res.Status == string(models.StatusProcessed) {
			resp.UploadedFiles = append(resp.UploadedFiles, res.Filename)
		} else {
			kinds = append(kinds, res.ErrorKind)
		}
		resp.Results = append(resp.Results, res)
	}

	status := http.StatusOK
	switch {
	case len(kinds) == 0:
		resp.Message = "Documents uploaded successfully"
	case len(kinds) < len(files):
		resp.Message = "Some documents failed to upload"
		status = http.StatusMultiStatus
	default:
		resp.Message = "No documents were uploaded"
		status = statusForKinds(kinds)
	}
	s.respondJSON(w, status, resp)
}

func (s *Server) ingestUpload(r *http.Request, fh *multipart.FileHeader, maxBytes int64) models.UploadResult {
	name := filepath.Base(fh.Filename)
	res := models.UploadResult{Filename: name, Status: string(models.StatusFailed)}
	fail := func(kind, msg string) models.UploadResult {
		res.ErrorKind = kind
		res.Error = msg
		s.logger.Info("upload rejected", zap.String("filename", name), zap.String("kind", kind), zap.String("error", msg))
		return res
	}

	if !extract.Supported(name) || !acceptedContentType(fh.Header.Get("Content-Type")) {
		return fail(models.ErrorKind(models.ErrUnsupportedFormat), "only PDF files are supported: "+name)
	}
	if fh.Size > maxBytes {
		return fail(kindTooLarge, fmt.Sprintf("file exceeds %d bytes", maxBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return fail(models.ErrorKind(models.ErrIngestion), err.Error())
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return fail(models.ErrorKind(models.ErrIngestion), err.Error())
	}
	if int64(len(content)) > maxBytes {
		return fail(kindTooLarge, fmt.Sprintf("file exceeds %d bytes", maxBytes))
	}

	rec, err := s.indexer.IngestBytes(r.Context(), name, content)
	if err != nil {
		return fail(models.ErrorKind(err), err.Error())
	}
	res.Status = string(rec.Status)
	res.Chunks = rec.Chunks
	res.Pages = rec.Pages
	return res
}

func acceptedContentType(ct string) bool {
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/pdf" || mt == "application/octet-stream"
}

func statusForKind(kind string) int {
	switch kind {
	case "unsupported_format", "invalid_query":
		return http.StatusBadRequest
	case "empty_document":
		return http.StatusUnprocessableEntity
	case "not_found":
		return http.StatusNotFound
	case kindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// statusForKinds picks the status for an upload where every file failed: the shared kind's status,
// or 400 when failures differ.
func statusForKinds(kinds []string) int {
	for _, k := range kinds[1:] {
		if k != kinds[0] {
			return http.StatusBadRequest
		}
	}
	return statusForKind(kinds[0])
}

func statusForError(err error) int {
	return statusForKind(models.ErrorKind(err))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.indexer.Documents(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.DocumentRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	doc, err := s.indexer.Document(r.Context(), filename)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cfg := s.config
	resp := map[string]interface{}{
		"mode":            st.Mode,
		"documents_count": st.DocumentsCount,
		"chunk_count":     st.ChunkCount,
		"config": map[string]interface{}{
			"chunk_size":     cfg.Chunking.ChunkSize,
			"chunk_overlap":  cfg.Chunking.ChunkOverlap,
			"top_k":          cfg.Retrieval.TopK,
			"min_relevance":  cfg.Retrieval.MinRelevance,
			"llm_model":      cfg.LLM.Model,
			"llm_provider":   cfg.LLM.Provider,
			"database_path":  cfg.Storage.DatabasePath,
			"demo_responses": cfg.Answer.DemoResponses,
		},
	}
	if cfg.Storage.DatabasePath != "" {
		if diskBytes, err := storage.RegistryDiskUsage(cfg.Storage.DatabasePath); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := req.Sync == nil || *req.Sync
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
