package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/repository"
	"github.com/malipravin2580/Data-Manager/internal/service"
)

// AuditHandler — глобальная лента аудита прав. Только для пользователей
// с глобальной ролью admin.
type AuditHandler struct {
	provenanceService *service.ProvenanceService
	authService       *service.AuthService
}

func NewAuditHandler(provenanceService *service.ProvenanceService, authService *service.AuthService) *AuditHandler {
	return &AuditHandler{provenanceService: provenanceService, authService: authService}
}

func (h *AuditHandler) PermissionAuditFeed(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	caller, err := h.authService.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if caller.Role != domain.RoleAdmin {
		http.Error(w, "Admin role required", http.StatusForbidden)
		return
	}

	filter := repository.AuditFeedFilter{
		FilePath: r.URL.Query().Get("file_path"),
		Days:     queryInt(r, "days", "7"),
		Limit:    queryInt(r, "limit", "100"),
	}
	if raw := r.URL.Query().Get("performed_by"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid performed_by", http.StatusBadRequest)
			return
		}
		filter.PerformedBy = &id
	}

	logs, err := h.provenanceService.PermissionAuditFeed(r.Context(), filter)
	if err != nil {
		log.Printf("[PermissionAuditFeed] Failed to get feed: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}
