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

type TeamHandler struct {
	teamService *service.TeamService
}

func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

type createTeamRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[CreateTeam] Failed to decode request body: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	team, err := h.teamService.Create(r.Context(), req.Name, req.Description, claims.UserID)
	if err != nil {
		log.Printf("[CreateTeam] Failed to create team %q: %v", req.Name, err)
		writeError(w, err)
		return
	}

	log.Printf("[CreateTeam] User %d created team %d (%s)", claims.UserID, team.ID, team.Name)
	writeJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	teams, err := h.teamService.ListMine(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("[ListTeams] Failed to list teams: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, teams)
}

type addMemberRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	teamID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid team id", http.StatusBadRequest)
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AddMember] Failed to decode request body: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	member, err := h.teamService.AddMember(r.Context(), teamID, req.UserID, claims.UserID, domain.UserRole(req.Role))
	if err != nil {
		log.Printf("[AddMember] Failed to add user %d to team %d: %v", req.UserID, teamID, err)
		writeError(w, err)
		return
	}

	log.Printf("[AddMember] User %d added user %d to team %d", claims.UserID, req.UserID, teamID)
	writeJSON(w, http.StatusCreated, member)
}

func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	teamID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid team id", http.StatusBadRequest)
		return
	}

	members, err := h.teamService.ListMembers(r.Context(), teamID, claims.UserID)
	if err != nil {
		log.Printf("[ListMembers] Failed to list members of team %d: %v", teamID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}
