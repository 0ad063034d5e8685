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

type ShareHandler struct {
	shareService      *service.ShareService
	permissionService *service.PermissionService
}

func NewShareHandler(shareService *service.ShareService, permissionService *service.PermissionService) *ShareHandler {
	return &ShareHandler{shareService: shareService, permissionService: permissionService}
}

type createShareRequest struct {
	FilePath    string  `json:"file_path"`
	Permission  string  `json:"permission,omitempty"`
	ExpiresDays int     `json:"expires_days,omitempty"`
	Password    *string `json:"password,omitempty"`
	MaxViews    *int    `json:"max_views,omitempty"`
}

type shareResponse struct {
	*domain.ShareLink
	ShareURL string `json:"share_url"`
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[CreateShare] Failed to decode request body: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	level := domain.PermissionView
	if req.Permission != "" {
		parsed, err := domain.ParsePermissionLevel(req.Permission)
		if err != nil {
			writeError(w, err)
			return
		}
		level = parsed
	}

	// Ссылку может выпустить только тот, кто сам видит файл.
	allowed, err := h.permissionService.Check(r.Context(), claims.UserID, req.FilePath, domain.PermissionView)
	if err != nil {
		writeError(w, err)
		return
	}
	if !allowed {
		http.Error(w, "No permission to share this file", http.StatusForbidden)
		return
	}

	link, err := h.shareService.Create(r.Context(), service.CreateShareParams{
		FilePath:    req.FilePath,
		CreatorID:   claims.UserID,
		Permission:  level,
		ExpiresDays: req.ExpiresDays,
		Password:    req.Password,
		MaxViews:    req.MaxViews,
	})
	if err != nil {
		log.Printf("[CreateShare] Failed to create share for %s: %v", req.FilePath, err)
		writeError(w, err)
		return
	}

	log.Printf("[CreateShare] User %d created share link %d for %s", claims.UserID, link.ID, link.FilePath)
	writeJSON(w, http.StatusCreated, shareResponse{
		ShareLink: link,
		ShareURL:  h.shareService.ShareURL(link.Token),
	})
}

type validateShareRequest struct {
	Token    string `json:"token"`
	Password string `json:"password,omitempty"`
}

// Validate — публичная проверка токена: живая ссылка тратит один просмотр,
// любая невалидная отвечает 404 без уточнения причины.
func (h *ShareHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ValidateShare] Failed to decode request body: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	link, err := h.shareService.Validate(r.Context(), req.Token, req.Password)
	if err != nil {
		log.Printf("[ValidateShare] Validation error: %v", err)
		writeError(w, err)
		return
	}
	if link == nil {
		http.Error(w, "Share link not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

func (h *ShareHandler) MyLinks(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	links, err := h.shareService.MyLinks(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("[MyLinks] Failed to list share links: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, links)
}

func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid share link id", http.StatusBadRequest)
		return
	}

	if err := h.shareService.Delete(r.Context(), id, claims.UserID); err != nil {
		log.Printf("[DeleteShare] Failed to delete share link %d: %v", id, err)
		writeError(w, err)
		return
	}

	log.Printf("[DeleteShare] User %d deleted share link %d", claims.UserID, id)
	w.WriteHeader(http.StatusNoContent)
}
