package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/service"
)

type PermissionHandler struct {
	permissionService *service.PermissionService
}

func NewPermissionHandler(permissionService *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

type grantRequest struct {
	FilePath   string `json:"file_path"`
	UserID     *int64 `json:"user_id,omitempty"`
	TeamID     *int64 `json:"team_id,omitempty"`
	Permission string `json:"permission"`
}

func (h *PermissionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[Grant] Failed to decode request body: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	level, err := domain.ParsePermissionLevel(req.Permission)
	if err != nil {
		writeError(w, err)
		return
	}

	perm, err := h.permissionService.Grant(r.Context(), service.GrantRequest{
		FilePath:     req.FilePath,
		TargetUserID: req.UserID,
		TargetTeamID: req.TeamID,
		Level:        level,
		PerformedBy:  claims.UserID,
	})
	if err != nil {
		log.Printf("[Grant] Failed to grant on %s: %v", req.FilePath, err)
		writeError(w, err)
		return
	}

	log.Printf("[Grant] User %d granted %s on %s", claims.UserID, level, req.FilePath)
	writeJSON(w, http.StatusCreated, perm)
}

func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid permission id", http.StatusBadRequest)
		return
	}

	if err := h.permissionService.Revoke(r.Context(), id, claims.UserID); err != nil {
		log.Printf("[Revoke] Failed to revoke permission %d: %v", id, err)
		writeError(w, err)
		return
	}

	log.Printf("[Revoke] User %d revoked permission %d", claims.UserID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionHandler) ListForFile(w http.ResponseWriter, r *http.Request) {
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

	perms, err := h.permissionService.ListForFile(r.Context(), claims.UserID, filePath)
	if err != nil {
		log.Printf("[ListForFile] Failed to list permissions on %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, perms)
}

// MyLevel возвращает наивысший уровень текущего пользователя на файл.
func (h *PermissionHandler) MyLevel(w http.ResponseWriter, r *http.Request) {
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

	level, err := h.permissionService.GetUserPermission(r.Context(), claims.UserID, filePath)
	if err != nil {
		log.Printf("[MyLevel] Failed to get permission on %s: %v", filePath, err)
		writeError(w, err)
		return
	}

	response := struct {
		FilePath   string  `json:"file_path"`
		Permission *string `json:"permission"`
	}{FilePath: filePath}
	if level != nil {
		v := string(*level)
		response.Permission = &v
	}

	writeJSON(w, http.StatusOK, response)
}
