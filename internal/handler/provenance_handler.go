package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/service"
)

type ProvenanceHandler struct {
	provenanceService *service.ProvenanceService
	permissionService *service.PermissionService
}

func NewProvenanceHandler(provenanceService *service.ProvenanceService, permissionService *service.PermissionService) *ProvenanceHandler {
	return &ProvenanceHandler{
		provenanceService: provenanceService,
		permissionService: permissionService,
	}
}

func (h *ProvenanceHandler) requirePermission(w http.ResponseWriter, r *http.Request, level domain.PermissionLevel, denied string) (int64, string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, "", false
	}

	filePath := chi.URLParam(r, "*")
	if filePath == "" {
		http.Error(w, "File path is required", http.StatusBadRequest)
		return 0, "", false
	}

	allowed, err := h.permissionService.Check(r.Context(), claims.UserID, filePath, level)
	if err != nil {
		writeError(w, err)
		return 0, "", false
	}
	if !allowed {
		http.Error(w, denied, http.StatusForbidden)
		return 0, "", false
	}
	return claims.UserID, filePath, true
}

func queryInt(r *http.Request, name, fallback string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		raw = fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// Lineage — плоское происхождение: прямые предки и потомки файла.
func (h *ProvenanceHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	userID, filePath, ok := h.requirePermission(w, r, domain.PermissionView, "No permission to view this file")
	if !ok {
		return
	}

	lineage, err := h.provenanceService.Lineage(r.Context(), userID, filePath, queryInt(r, "depth", "5"), requestMeta(r))
	if err != nil {
		log.Printf("[Lineage] Failed to build lineage for %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lineage)
}

// LineageGraph — обход графа происхождения в ширину в обе стороны.
func (h *ProvenanceHandler) LineageGraph(w http.ResponseWriter, r *http.Request) {
	userID, filePath, ok := h.requirePermission(w, r, domain.PermissionView, "No permission to view this file")
	if !ok {
		return
	}

	graph, err := h.provenanceService.LineageGraph(r.Context(), userID, filePath, queryInt(r, "depth", "5"), requestMeta(r))
	if err != nil {
		log.Printf("[LineageGraph] Failed to build graph for %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, graph)
}

// AccessHistory — журнал доступа к файлу. Требует admin на файл.
func (h *ProvenanceHandler) AccessHistory(w http.ResponseWriter, r *http.Request) {
	_, filePath, ok := h.requirePermission(w, r, domain.PermissionAdmin, "No permission to view access history")
	if !ok {
		return
	}

	logs, err := h.provenanceService.AccessHistory(r.Context(), filePath, queryInt(r, "limit", "100"))
	if err != nil {
		log.Printf("[AccessHistory] Failed to get history for %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}

// PermissionAuditHistory — аудит прав по файлу. Требует admin на файл.
func (h *ProvenanceHandler) PermissionAuditHistory(w http.ResponseWriter, r *http.Request) {
	_, filePath, ok := h.requirePermission(w, r, domain.PermissionAdmin, "No permission to view audit history")
	if !ok {
		return
	}

	logs, err := h.provenanceService.PermissionAuditHistory(r.Context(), filePath, queryInt(r, "limit", "100"))
	if err != nil {
		log.Printf("[PermissionAuditHistory] Failed to get audit for %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}
