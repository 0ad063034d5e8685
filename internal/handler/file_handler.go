package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/service"
)

type FileHandler struct {
	fileService *service.FileService
	maxFileSize int64
}

func NewFileHandler(fileService *service.FileService, maxFileSize int64) *FileHandler {
	return &FileHandler{fileService: fileService, maxFileSize: maxFileSize}
}

// Upload принимает multipart-форму: поле file с содержимым и необязательное
// поле path с целевым путем. Без path файл ложится под своим именем.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		log.Printf("[Upload] Failed to parse multipart form: %v", err)
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		log.Printf("[Upload] Missing file field: %v", err)
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filePath := r.FormValue("path")
	if filePath == "" {
		filePath = path.Base(header.Filename)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[Upload] Failed to read file %s: %v", filePath, err)
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	log.Printf("[Upload] User %d uploading %s (%d bytes)", claims.UserID, filePath, len(data))

	info, err := h.fileService.Upload(r.Context(), claims.UserID, filePath, data, requestMeta(r))
	if err != nil {
		log.Printf("[Upload] Failed to upload %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

func (h *FileHandler) Preview(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filePath := chi.URLParam(r, "*")
	if filePath == "" {
		http.Error(w, "File path is required", http.StatusBadRequest)
		return
	}

	rows := 100
	if raw := r.URL.Query().Get("rows"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			rows = n
		}
	}

	preview, err := h.fileService.Preview(r.Context(), claims.UserID, filePath, rows, requestMeta(r))
	if err != nil {
		log.Printf("[Preview] Failed to preview %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filePath := chi.URLParam(r, "*")
	if filePath == "" {
		http.Error(w, "File path is required", http.StatusBadRequest)
		return
	}

	data, err := h.fileService.Download(r.Context(), claims.UserID, filePath, requestMeta(r))
	if err != nil {
		log.Printf("[Download] Failed to download %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(filePath)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (h *FileHandler) Info(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filePath := chi.URLParam(r, "*")
	if filePath == "" {
		http.Error(w, "File path is required", http.StatusBadRequest)
		return
	}

	info, err := h.fileService.Info(r.Context(), claims.UserID, filePath)
	if err != nil {
		log.Printf("[Info] Failed to stat %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filePath := chi.URLParam(r, "*")
	if filePath == "" {
		http.Error(w, "File path is required", http.StatusBadRequest)
		return
	}

	log.Printf("[Delete] User %d deleting %s", claims.UserID, filePath)

	if err := h.fileService.Delete(r.Context(), claims.UserID, filePath, requestMeta(r)); err != nil {
		log.Printf("[Delete] Failed to delete %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	prefix := r.URL.Query().Get("prefix")

	files, err := h.fileService.List(r.Context(), claims.UserID, prefix)
	if err != nil {
		log.Printf("[List] Failed to list files with prefix %q: %v", prefix, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

type transformRequest struct {
	SourcePaths        []string       `json:"source_paths"`
	OutputPath         string         `json:"output_path"`
	TransformationType string         `json:"transformation_type"`
	Details            domain.Details `json:"details,omitempty"`
}

func (h *FileHandler) Transform(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[Transform] Failed to decode request body: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	log.Printf("[Transform] User %d recording %s -> %s", claims.UserID, req.SourcePaths, req.OutputPath)

	recs, err := h.fileService.Transform(r.Context(), claims.UserID, service.TransformRequest{
		SourcePaths:        req.SourcePaths,
		OutputPath:         req.OutputPath,
		TransformationType: req.TransformationType,
		Details:            req.Details,
	}, requestMeta(r))
	if err != nil {
		log.Printf("[Transform] Failed to record transformation: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, recs)
}
