package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/repository"
	"github.com/malipravin2580/Data-Manager/internal/service"
)

type ActivityHandler struct {
	activityService *service.ActivityService
}

func NewActivityHandler(activityService *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// Feed — лента активности с фильтрами. Не-администратор видит только свои
// записи, что бы ни передал в user_id.
func (h *ActivityHandler) Feed(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filter := repository.AccessFeedFilter{
		FilePath: r.URL.Query().Get("file_path"),
		Action:   r.URL.Query().Get("action"),
		Days:     queryInt(r, "days", "7"),
		Limit:    queryInt(r, "limit", "100"),
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid user_id", http.StatusBadRequest)
			return
		}
		filter.UserID = &id
	}

	logs, err := h.activityService.Feed(r.Context(), claims.UserID, filter)
	if err != nil {
		log.Printf("[ActivityFeed] Failed to get feed: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}

func (h *ActivityHandler) MyActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	logs, err := h.activityService.MyActivity(
		r.Context(),
		claims.UserID,
		queryInt(r, "days", "7"),
		queryInt(r, "limit", "100"),
	)
	if err != nil {
		log.Printf("[MyActivity] Failed to get activity for user %d: %v", claims.UserID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}
